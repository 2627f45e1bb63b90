// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no CGO. Network, storage and browser
// concerns stay behind driven ports.
package services
