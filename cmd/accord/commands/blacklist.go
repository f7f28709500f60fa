package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mosaicnetworks/accord/src/attachment"
	"github.com/mosaicnetworks/accord/src/contract"
	"github.com/spf13/cobra"
)

var (
	blacklistOut  string
	blacklistFrom string
)

// NewBlacklistCmd produces a command that builds a blacklist attachment: a
// zip archive with a blacklist.txt entry listing one organisation per line.
func NewBlacklistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blacklist [organisation...]",
		Short: "Create a blacklist attachment",
		RunE:  blacklist,
	}

	cmd.Flags().StringVarP(&blacklistOut, "out", "o", "blacklist.jar", "File where the archive will be written")
	cmd.Flags().StringVarP(&blacklistFrom, "from", "f", "", "Text file with one organisation per line")

	return cmd
}

func blacklist(cmd *cobra.Command, args []string) error {
	names := append([]string{}, args...)

	if blacklistFrom != "" {
		f, err := os.Open(blacklistFrom)
		if err != nil {
			return err
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				names = append(names, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return err
		}
	}

	if len(names) == 0 {
		return fmt.Errorf("no organisation to blacklist")
	}

	archive, err := contract.NewBlacklistArchive(names)
	if err != nil {
		return err
	}

	if err := os.WriteFile(blacklistOut, archive, 0644); err != nil {
		return err
	}

	fmt.Printf("Blacklist of %d organisations written to %s\n", len(names), blacklistOut)
	fmt.Printf("Attachment id: %s\n", attachment.ID(archive))

	return nil
}
