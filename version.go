package mdtl

// Name and Description identify the tool on the command line and to
// translation services.
const (
	Name        = "mdtl"
	Description = "Markdown translation for multilingual documentation sites"
)

// Release metadata, stamped at link time:
//
//	go build -ldflags "-X github.com/ZaguanLabs/mdtl.Version=v0.2.0 -X github.com/ZaguanLabs/mdtl.Commit=$(git rev-parse HEAD)"
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

// VersionString is Version followed by the short commit when one was
// stamped, e.g. "v0.2.0 (1a2b3c4)".
func VersionString() string {
	if Commit == "" {
		return Version
	}
	short := Commit
	if len(short) > 7 {
		short = short[:7]
	}
	return Version + " (" + short + ")"
}

// UserAgent is sent with every HTTP request to a translation service.
func UserAgent() string {
	return Name + "/" + Version
}
