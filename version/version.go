package version

// TONLiteVersion is the current semantic version of the lite-client.
// It is overridden at link time for release builds.
var TONLiteVersion = "0.2.0-dev"
