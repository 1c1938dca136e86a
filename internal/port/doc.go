// Package port checks host port availability for the stack's published
// ports.
//
// The stack publishes fixed, user-declared ports (the web port and the
// API port), so there is no allocation or shifting to do: either the
// declared host ports are free or the deployment cannot bind them.
// `tmuctl up` uses the checks here to fail fast with a clear conflict
// report instead of letting the container engine fail mid-deploy, and
// `tmuctl doctor` uses them to suggest a nearby free port.
//
// Availability is probed with net.Listen / net.ListenPacket, asking the
// OS directly rather than parsing /proc/net/* or shelling out to tools
// like lsof that may need elevated permissions.
package port
