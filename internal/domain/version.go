package domain

// Version is the simulation core's version tag.
const Version = "0.1.0"
