package ir

// Version is the qrm release version reported by the CLI.
const Version = "0.3.0"
