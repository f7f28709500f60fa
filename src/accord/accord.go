package accord

import (
	"crypto/ecdsa"
	"fmt"
	"os"

	"github.com/mosaicnetworks/accord/src/attachment"
	"github.com/mosaicnetworks/accord/src/config"
	"github.com/mosaicnetworks/accord/src/contract"
	"github.com/mosaicnetworks/accord/src/crypto/keys"
	"github.com/mosaicnetworks/accord/src/ledger"
	"github.com/mosaicnetworks/accord/src/net"
	"github.com/mosaicnetworks/accord/src/node"
	"github.com/mosaicnetworks/accord/src/peers"
	"github.com/mosaicnetworks/accord/src/service"
	"github.com/sirupsen/logrus"
)

// Accord is a struct containing the key parts of an accord node.
type Accord struct {
	Config      *config.Config
	Node        *node.Node
	Transport   net.Transport
	Attachments attachment.Store
	Ledger      ledger.Store
	Peers       *peers.PeerSet
	Service     *service.Service
	logger      *logrus.Entry
}

// NewAccord is a factory method to produce an Accord instance.
func NewAccord(c *config.Config) *Accord {
	engine := &Accord{
		Config: c,
		logger: c.Logger(),
	}

	return engine
}

// Init initialises the engine: key, peers, stores, transport, node and
// service, in that order.
func (a *Accord) Init() error {
	a.logger.Debug("validateConfig")
	if err := a.validateConfig(); err != nil {
		a.logger.WithError(err).Error("accord.go:Init() validateConfig")
		return err
	}

	a.logger.Debug("initKey")
	if err := a.initKey(); err != nil {
		a.logger.WithError(err).Error("accord.go:Init() initKey")
		return err
	}

	a.logger.Debug("initPeers")
	if err := a.initPeers(); err != nil {
		a.logger.WithError(err).Error("accord.go:Init() initPeers")
		return err
	}

	a.logger.Debug("initStores")
	if err := a.initStores(); err != nil {
		a.logger.WithError(err).Error("accord.go:Init() initStores")
		return err
	}

	a.logger.Debug("initTransport")
	if err := a.initTransport(); err != nil {
		a.logger.WithError(err).Error("accord.go:Init() initTransport")
		a.closeStores()
		return err
	}

	a.logger.Debug("initNode")
	if err := a.initNode(); err != nil {
		a.logger.WithError(err).Error("accord.go:Init() initNode")
		a.Transport.Close()
		a.closeStores()
		return err
	}

	a.logger.Debug("initService")
	if err := a.initService(); err != nil {
		a.logger.WithError(err).Error("accord.go:Init() initService")
		return err
	}

	return nil
}

// Run starts the service, if any, and the node. This is a blocking call.
func (a *Accord) Run() {
	if a.Service != nil {
		go a.Service.Serve()
	}
	a.Node.Run()
}

// RunAsync runs the node in a separate goroutine.
func (a *Accord) RunAsync() {
	go a.Run()
}

// Shutdown stops the node and closes its stores.
func (a *Accord) Shutdown() {
	if a.Node != nil {
		a.Node.Shutdown()
	}
}

func (a *Accord) validateConfig() error {
	switch a.Config.Store {
	case config.InmemStore, config.BadgerStore:
	default:
		return fmt.Errorf("unknown store type %q", a.Config.Store)
	}

	a.logger.WithFields(logrus.Fields{
		"config.DataDir":            a.Config.DataDir,
		"config.Moniker":            a.Config.Moniker,
		"config.BindAddr":           a.Config.BindAddr,
		"config.AdvertiseAddr":      a.Config.AdvertiseAddr,
		"config.ServiceAddr":        a.Config.ServiceAddr,
		"config.NoService":          a.Config.NoService,
		"config.TCPTimeout":         a.Config.TCPTimeout,
		"config.FlowTimeout":        a.Config.FlowTimeout,
		"config.MaxPool":            a.Config.MaxPool,
		"config.Store":              a.Config.Store,
		"config.DatabaseDir":        a.Config.DatabaseDir,
		"config.CacheSize":          a.Config.CacheSize,
		"config.TrustedAttachments": a.Config.TrustedAttachments,
		"config.LogLevel":           a.Config.LogLevel,
		"config.LogFile":            a.Config.LogFile,
	}).Debug("Config")

	return nil
}

func (a *Accord) initKey() error {
	if a.Config.Key != nil {
		return nil
	}

	keyfile := keys.NewSimpleKeyfile(a.Config.Keyfile())

	key, err := keyfile.ReadKey()
	if err != nil {
		return fmt.Errorf("reading private key: %v", err)
	}

	a.Config.Key = key
	return nil
}

func (a *Accord) initPeers() error {
	if a.Config.Peers != nil {
		a.Peers = a.Config.Peers
	} else {
		peerSet, err := peers.NewJSONPeerSet(a.Config.DataDir).PeerSet()
		if err != nil {
			return err
		}
		a.Peers = peerSet
	}

	self, ok := a.Peers.ByPubKey[keys.PublicKeyHex(&a.Config.Key.PublicKey)]
	if !ok {
		return fmt.Errorf("cannot find self pubkey in peers.json")
	}

	if a.Config.Moniker == "" {
		a.Config.Moniker = self.Moniker
	} else if self.Moniker != a.Config.Moniker {
		return fmt.Errorf("moniker %s does not match peers.json entry %s", a.Config.Moniker, self.Moniker)
	}

	if a.Peers.Len() < 2 {
		a.logger.Warn("peers.json defines no counterparty")
	}

	return nil
}

func (a *Accord) initStores() error {
	switch a.Config.Store {
	case config.BadgerStore:
		a.logger.WithField("path", a.Config.DatabaseDir).Debug("Opening badger stores")

		attachments, err := attachment.NewBadgerStore(a.Config.AttachmentDir(), a.Config.CacheSize, a.logger)
		if err != nil {
			return err
		}

		ledgerStore, err := ledger.NewBadgerStore(a.Config.LedgerDir(), a.Config.CacheSize, a.logger)
		if err != nil {
			attachments.Close()
			return err
		}

		a.Attachments, a.Ledger = attachments, ledgerStore
	default:
		a.Attachments = attachment.NewInmemStore()
		a.Ledger = ledger.NewInmemStore()

		a.logger.Debug("Created in-mem stores")
	}

	return nil
}

func (a *Accord) closeStores() {
	if a.Attachments != nil {
		a.Attachments.Close()
	}
	if a.Ledger != nil {
		a.Ledger.Close()
	}
}

func (a *Accord) initTransport() error {
	transport, err := net.NewTCPTransport(
		a.Config.BindAddr,
		a.Config.AdvertiseAddr,
		a.Config.MaxPool,
		a.Config.TCPTimeout,
		a.Config.FlowTimeout,
		a.logger,
	)
	if err != nil {
		return err
	}

	a.Transport = transport

	return nil
}

func (a *Accord) initNode() error {
	verifier := contract.NewVerifier(
		contract.NewAttachmentContract(a.Config.TrustedAttachments...),
	)

	a.Node = node.NewNode(
		node.NewConfig(a.Config.FlowTimeout, a.logger),
		node.NewValidator(a.Config.Key, a.Config.Moniker),
		a.Peers,
		a.Attachments,
		a.Ledger,
		verifier,
		a.Transport,
	)

	if err := a.Node.Init(); err != nil {
		return fmt.Errorf("failed to initialize node: %s", err)
	}

	return nil
}

func (a *Accord) initService() error {
	if !a.Config.NoService {
		a.Service = service.NewService(a.Config.ServiceAddr, a.Node, a.logger)
	}
	return nil
}

// Keygen creates a new key and writes it in keyfile. It fails if the file
// already exists.
func Keygen(keyfile string) (*ecdsa.PrivateKey, error) {
	if _, err := os.Stat(keyfile); err == nil {
		return nil, fmt.Errorf("another key already lives in %s", keyfile)
	}

	key, err := keys.GenerateECDSAKey()
	if err != nil {
		return nil, err
	}

	if err := keys.NewSimpleKeyfile(keyfile).WriteKey(key); err != nil {
		return nil, err
	}

	return key, nil
}
