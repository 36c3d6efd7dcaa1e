// ABOUTME: Version and identity constants
// ABOUTME: Shared by the CLI banner, the TUI header and the pause helper
package version

const (
	// Product is the CLI name
	Product = "alsasink"

	// Version of the sink
	Version = "0.1.0"

	// Manufacturer of the target hardware
	Manufacturer = "HiFiBerry"

	// PlayerName identifies this sink to the pause-all helper
	PlayerName = "vollibrespot"
)

// String returns "Product Version"
func String() string {
	return Product + " " + Version
}
