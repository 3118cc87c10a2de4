// Package app contains the core application logic. It defines the App
// struct, its configuration and the survey commands (validate, dag, walk,
// simulate, migrate), decoupled from any specific entrypoint like a CLI.
package app
