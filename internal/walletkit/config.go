package walletkit

import (
	"moff.io/walletkit/internal/chains"
)

// Metadata is what wallets display about this application.
type Metadata struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Icons       []string `json:"icons"`
}

// Config is passed by value into New. Chains holds EIP-155 chain ids.
type Config struct {
	ProjectID string   `json:"project_id"`
	Chains    []int    `json:"chains"`
	Metadata  Metadata `json:"metadata"`
}

func (c Config) clone() Config {
	cp := c
	cp.Chains = append([]int(nil), c.Chains...)
	cp.Metadata.Icons = append([]string{}, c.Metadata.Icons...)
	return cp
}

// Namespaces renders Chains as CAIP-2 identifiers.
func (c Config) Namespaces() []string {
	out := make([]string, 0, len(c.Chains))
	for _, id := range c.Chains {
		out = append(out, chains.CAIP2(id))
	}
	return out
}

// SessionConfig is the configuration of the wallet-session kit: Ethereum
// mainnet and the app wallet metadata.
func SessionConfig(projectID string) Config {
	return Config{
		ProjectID: projectID,
		Chains:    []int{1},
		Metadata: Metadata{
			Name:        "My App Wallet",
			Description: "Wallet connection for MyApp",
			URL:         "https://mywebsite.com",
			Icons:       []string{"https://avatars.mywebsite.com/"},
		},
	}
}

// PairingConfig is the configuration of the pairing kit bound to a relay core.
func PairingConfig(projectID string) Config {
	return Config{
		ProjectID: projectID,
		Metadata: Metadata{
			Name:        "My Vue App",
			Description: "A Vue.js app with manual WalletConnect URI",
			URL:         "https://my-vue-app.com",
			Icons:       []string{},
		},
	}
}
