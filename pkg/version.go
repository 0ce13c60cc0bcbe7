package moodledger

// Version is the current release of moodledger.
const Version = "0.1.0"
