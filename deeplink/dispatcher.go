// Package deeplink hands pairing URIs to external wallet applications and
// parses the callback URIs they return with.
package deeplink

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/parkview-app/walletcore/ports"
)

// WalletApp describes an external wallet application reachable by deep link.
type WalletApp struct {
	Name          string
	Scheme        string // e.g. "metamask"
	UniversalLink string // e.g. "https://metamask.app.link", optional
	DownloadURL   string
}

// SupportedWallets lists the wallet apps tried by default, in order.
var SupportedWallets = []WalletApp{
	{
		Name:          "MetaMask",
		Scheme:        "metamask",
		UniversalLink: "https://metamask.app.link",
		DownloadURL:   "https://metamask.io/download/",
	},
	{
		Name:          "Trust Wallet",
		Scheme:        "trust",
		UniversalLink: "https://link.trustwallet.com",
		DownloadURL:   "https://trustwallet.com/download",
	},
	{
		Name:        "Rainbow",
		Scheme:      "rainbow",
		DownloadURL: "https://rainbow.me/download",
	},
	{
		Name:        "Coinbase Wallet",
		Scheme:      "cbwallet",
		DownloadURL: "https://www.coinbase.com/wallet/downloads",
	},
}

// CandidateLinks builds the ordered candidate URIs for a pairing URI: the
// scheme link first, the universal link as fallback. Wallets consume the
// pairing URI via their wc endpoint.
func (w WalletApp) CandidateLinks(pairingURI string) []string {
	encoded := url.QueryEscape(pairingURI)
	links := []string{fmt.Sprintf("%s://wc?uri=%s", w.Scheme, encoded)}
	if w.UniversalLink != "" {
		links = append(links, fmt.Sprintf("%s/wc?uri=%s", w.UniversalLink, encoded))
	}
	return links
}

// OpenResult reports the outcome of a dispatch attempt.
type OpenResult struct {
	Opened   bool
	ViaIndex int // index of the candidate that opened, -1 if none
}

// Dispatcher issues candidate links in priority order and stops at the
// first one the OS can open.
type Dispatcher struct {
	launcher ports.LinkLauncher
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher over an OS launcher.
func NewDispatcher(launcher ports.LinkLauncher, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{launcher: launcher, logger: logger}
}

// Open tries each candidate in order. It does not know whether the user
// completes anything in the opened app; "nothing opened" is the caller's
// cue to offer an install prompt or a QR code instead.
func (d *Dispatcher) Open(ctx context.Context, candidates []string) OpenResult {
	for i, link := range candidates {
		if !d.launcher.CanOpen(ctx, link) {
			d.logger.Debug("no handler for candidate link", zap.Int("index", i))
			continue
		}
		if err := d.launcher.Open(ctx, link); err != nil {
			d.logger.Warn("failed to open candidate link", zap.Int("index", i), zap.Error(err))
			continue
		}
		d.logger.Info("opened wallet app", zap.Int("index", i))
		return OpenResult{Opened: true, ViaIndex: i}
	}
	return OpenResult{Opened: false, ViaIndex: -1}
}
