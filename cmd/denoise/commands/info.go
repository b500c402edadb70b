package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/born-ml/denoise"
	"github.com/born-ml/denoise/internal/filter"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show device information",
	Long: `Create and commit the selected device and print its parameters,
supported external memory types and the available filter types.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dev, err := openDevice()
		if err != nil {
			return err
		}
		defer dev.Release()
		return printInfo(cmd.OutOrStdout(), dev)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

var externalMemoryNames = []struct {
	flag denoise.ExternalMemoryTypeFlags
	name string
}{
	{denoise.ExternalMemoryTypeOpaqueFD, "opaqueFD"},
	{denoise.ExternalMemoryTypeDMABuf, "dmaBuf"},
	{denoise.ExternalMemoryTypeOpaqueWin32, "opaqueWin32"},
	{denoise.ExternalMemoryTypeOpaqueWin32KMT, "opaqueWin32KMT"},
}

func printInfo(w io.Writer, dev *denoise.Device) error {
	fmt.Fprintf(w, "Device:       %s\n", dev.Type())
	fmt.Fprintf(w, "Version:      %d.%d.%d\n",
		dev.GetInt("versionMajor"), dev.GetInt("versionMinor"), dev.GetInt("versionPatch"))

	if dev.Type() == denoise.DeviceTypeCPU {
		fmt.Fprintf(w, "Threads:      %d\n", dev.GetInt("numThreads"))
		fmt.Fprintf(w, "Affinity:     %t\n", dev.GetBool("setAffinity"))
	}

	flags := denoise.ExternalMemoryTypeFlags(dev.GetInt("externalMemoryTypes"))
	var names []string
	for _, m := range externalMemoryNames {
		if flags.Has(m.flag) {
			names = append(names, m.name)
		}
	}
	if len(names) == 0 {
		names = []string{"none"}
	}
	fmt.Fprintf(w, "External mem: %s\n", strings.Join(names, ", "))
	fmt.Fprintf(w, "Filters:      %s\n", strings.Join(filter.Types(), ", "))

	return deviceError(dev)
}
