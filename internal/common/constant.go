package common

// AuthCookieName is the cookie that carries the signed session token.
const AuthCookieName = "auth_token"

// OAuthSessionName is the gorilla session holding OAuth state between the
// redirect to the provider and the callback.
const OAuthSessionName = "oauth_state"

// SettingPaymentEnabled gates the whole contribution flow. The stored value
// is the string "true" or "false".
const SettingPaymentEnabled = "test_payment_enabled"

// ProviderEmail and ProviderGoogle tag how a user authenticates.
const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)
