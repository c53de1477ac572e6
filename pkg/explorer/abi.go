package explorer

import "encoding/json"

// erc20Core is the minimal method surface we accept as "shaped like a fungible token".
var erc20Core = []string{"totalSupply", "balanceOf", "transfer"}

// IsFungibleTokenABI reports whether abiText is a JSON array of descriptors whose
// declared names include totalSupply, balanceOf and transfer. It is a shape check only.
func IsFungibleTokenABI(abiText string) bool {
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(abiText), &entries); err != nil {
		return false
	}
	names := make(map[string]bool, len(entries))
	for _, raw := range entries {
		var d struct {
			Name string `json:"name"`
		}
		if json.Unmarshal(raw, &d) != nil {
			continue
		}
		names[d.Name] = true
	}
	for _, n := range erc20Core {
		if !names[n] {
			return false
		}
	}
	return true
}
