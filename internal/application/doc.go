// Package application provides application initialization and dependency wiring.
// It creates the config store, the polling synchronizer, the theme
// broadcaster, the autostart controller and the loopback HTTP API, keeping
// the main package focused on CLI parsing and orchestration.
package application
