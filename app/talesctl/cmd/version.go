package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/Masterminds/semver/v3"
	"github.com/pandatales/pandatales/app/core/tales"
	"github.com/spf13/cobra"
)

// Build-time variables (set via ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// supportedCatalogRange is the tale library format this build understands
const supportedCatalogRange = "^1.0.0"

var versionJSON bool

// VersionInfo represents CLI version information
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	Platform  string `json:"platform"`
}

// CatalogInfo represents the embedded tale library
type CatalogInfo struct {
	Version   string `json:"version"`
	Tales     int    `json:"tales"`
	Supported bool   `json:"supported"`
}

// VersionOutput represents the complete version command output
type VersionOutput struct {
	CLI     VersionInfo `json:"cli"`
	Catalog CatalogInfo `json:"catalog"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `Display version information for talesctl and the tale library compiled into it.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		output, err := buildVersionOutput()
		if err != nil {
			exitWithError(err)
		}
		if versionJSON {
			outputJSON(os.Stdout, output)
		} else {
			outputHumanReadable(os.Stdout, output)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Output in JSON format")
}

func buildVersionOutput() (VersionOutput, error) {
	catalog, err := tales.Default()
	if err != nil {
		return VersionOutput{}, err
	}

	return VersionOutput{
		CLI: VersionInfo{
			Version:   Version,
			Commit:    Commit,
			BuildDate: BuildDate,
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		},
		Catalog: CatalogInfo{
			Version:   catalog.Version().String(),
			Tales:     catalog.Len(),
			Supported: catalogSupported(catalog.Version()),
		},
	}, nil
}

// catalogSupported reports whether v falls in supportedCatalogRange
func catalogSupported(v *semver.Version) bool {
	constraint, err := semver.NewConstraint(supportedCatalogRange)
	if err != nil {
		return false
	}
	return constraint.Check(v)
}

// outputJSON outputs version information in JSON format
func outputJSON(w io.Writer, output VersionOutput) {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(output)
}

// outputHumanReadable outputs version information in human-readable format
func outputHumanReadable(w io.Writer, output VersionOutput) {
	fmt.Fprintf(w, "talesctl %s (commit %s, %s)\n",
		output.CLI.Version,
		shortCommit(output.CLI.Commit),
		output.CLI.BuildDate)

	fmt.Fprintf(w, "Tale library %s (%d tales)\n", output.Catalog.Version, output.Catalog.Tales)
	if !output.Catalog.Supported {
		fmt.Fprintf(w, "⚠️  Tale library is outside the supported range %s\n", supportedCatalogRange)
	}
}

// shortCommit returns the first 7 characters of a commit hash
func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}
