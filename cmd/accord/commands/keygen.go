package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mosaicnetworks/accord/src/accord"
	"github.com/mosaicnetworks/accord/src/crypto/keys"
	"github.com/mosaicnetworks/accord/src/peers"
	"github.com/spf13/cobra"
)

var (
	privKeyFile string
	pubKeyFile  string
	netAddr     string
)

// NewKeygenCmd produces a KeygenCmd which create a key pair
func NewKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create new key pair",
		RunE:  keygen,
	}

	AddKeygenFlags(cmd)

	return cmd
}

//AddKeygenFlags adds flags to the keygen command
func AddKeygenFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&privKeyFile, "priv", _config.Accord.Keyfile(), "File where the private key will be written")
	cmd.Flags().StringVar(&pubKeyFile, "pub", filepath.Join(_config.Accord.DataDir, "key.pub"), "File where the public key will be written")
	cmd.Flags().StringVar(&netAddr, "net-addr", _config.Accord.BindAddr, "Address printed in the peers.json entry")
	cmd.Flags().String("moniker", "", "Organisation name printed in the peers.json entry")
}

func keygen(cmd *cobra.Command, args []string) error {
	key, err := accord.Keygen(privKeyFile)
	if err != nil {
		return err
	}

	fmt.Printf("Your private key has been saved to: %s\n", privKeyFile)

	if err := os.MkdirAll(filepath.Dir(pubKeyFile), 0700); err != nil {
		return fmt.Errorf("Writing public key: %s", err)
	}

	pub := keys.PublicKeyHex(&key.PublicKey)

	if err := os.WriteFile(pubKeyFile, []byte(pub), 0600); err != nil {
		return fmt.Errorf("Writing public key: %s", err)
	}

	fmt.Printf("Your public key has been saved to: %s\n", pubKeyFile)

	moniker, _ := cmd.Flags().GetString("moniker")
	entry, err := peers.NewPeerSet([]*peers.Peer{peers.NewPeer(pub, netAddr, moniker)}).Marshal()
	if err != nil {
		return err
	}

	fmt.Printf("peers.json entry:\n%s\n", entry)

	return nil
}
