package types

// Version is the canonical module version.
// The CLI, recording format and snapshot format share this version.
const Version = "0.3.0"
