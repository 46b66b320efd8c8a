package types

// AssetDescriptor identifies a fungible asset. Decimals is fixed per asset and
// used for every amount conversion.
type AssetDescriptor struct {
	ID       string `json:"id" mapstructure:"id"`
	Symbol   string `json:"symbol" mapstructure:"symbol"`
	Name     string `json:"name" mapstructure:"name"`
	Decimals uint8  `json:"decimals" mapstructure:"decimals"`
	IconURI  string `json:"icon_uri,omitempty" mapstructure:"icon_uri"`
}
