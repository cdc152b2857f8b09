// Package config provides configuration structures and utilities for alignpipe.
// It defines the stage switches read from the command line, the paths and
// scripts the stages are built from, the optional .alignpipe project file,
// and the .env file whose variables are handed to every stage process.
package config
