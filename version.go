package vitrine

// Version is the SDK version
const Version = "0.3.0"
