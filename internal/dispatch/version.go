package dispatch

// Set at build time with -ldflags "-X github.com/roach88/rentledger/internal/dispatch.Version=...".
var Version = "dev"

// VersionInfo describes the running ledger service.
type VersionInfo struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Features []string `json:"features"`
}

// CurrentVersion returns the build's VersionInfo.
func CurrentVersion() VersionInfo {
	return VersionInfo{
		Name:    "rentledger",
		Version: Version,
		Features: []string{
			"contract-lifecycle",
			"security-deposits",
			"contract-extensions",
			"payment-schedules",
			"order-ref-index",
			"penalties",
			"private-details",
			"contract-history",
		},
	}
}
