package version

var (
	// GitCommit is the current HEAD set using ldflags.
	GitCommit string

	// Version is the built softwares version.
	Version = PlasmaSemVer
)

func init() {
	if GitCommit != "" {
		Version += "-" + GitCommit
	}
}

const (
	// PlasmaSemVer is the semantic version of the node software.
	PlasmaSemVer = "0.4.0"

	// RPCSemVer versions the child chain JSON-RPC method set.
	RPCSemVer = "1.0.0"
)

// Protocol is used for implementation agnostic versioning.
type Protocol uint64

// Uint64 returns the Protocol version as a uint64.
func (p Protocol) Uint64() uint64 {
	return uint64(p)
}

var (
	// BlockProtocol versions the transaction and block encodings, their
	// hashes and the Merkle proof format. Participants and the authority
	// must agree on it.
	BlockProtocol Protocol = 1
)

// Info is what the version command reports.
type Info struct {
	Plasma        string `json:"plasma"`
	RPC           string `json:"rpc"`
	BlockProtocol uint64 `json:"block_protocol"`
}

// Current returns the version of this build.
func Current() Info {
	return Info{
		Plasma:        Version,
		RPC:           RPCSemVer,
		BlockProtocol: BlockProtocol.Uint64(),
	}
}
