// Package config loads the settings of the peardb command-line tool.
//
// Values are resolved in this order, highest precedence first:
//
//  1. command-line flags bound to the viper instance
//  2. PEARDB_* environment variables (a .env file in the working directory
//     is loaded first and never overrides variables already set)
//  3. the config file (--config, or .peardb.yaml in the working directory or
//     the home directory)
//  4. defaults
//
// The result is validated with go-playground/validator before use.
package config
