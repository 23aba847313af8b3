package squeeze

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// sessionEnvelope is the JSON document inside a wrapped session token. Only
// the access token matters; everything else is client-side session state.
type sessionEnvelope struct {
	AccessToken string `json:"access_token"`
}

// ClaimsDecoder turns a raw Credential into Claims. Signature, expiry, and
// audience verification are independently toggleable; disabling them is a
// supported relaxed mode, logged as security-relevant at construction.
type ClaimsDecoder struct {
	verifySignature bool
	verifyExp       bool
	verifyAud       bool
	audience        []string
	signingKey      []byte
	keyFunc         jwt.Keyfunc
	logger          Logger
}

// NewClaimsDecoder builds a decoder from config. When JWK set URLs are
// configured they take precedence over the HMAC signing key for signature
// verification.
func NewClaimsDecoder(cfg Config) (*ClaimsDecoder, error) {
	d := &ClaimsDecoder{
		verifySignature: cfg.GetVerifySignature(),
		verifyExp:       cfg.GetVerifyExpiration(),
		verifyAud:       cfg.GetVerifyAudience(),
		audience:        cfg.GetAudience(),
		signingKey:      []byte(cfg.GetSigningKey()),
		logger:          defLogger{},
	}

	if d.verifySignature {
		if urls := cfg.GetJWKSetURLs(); len(urls) > 0 {
			kf, err := jwkSetKeyfunc(urls)
			if err != nil {
				return nil, errors.Wrap(err, errors.CategoryInternal, "failed to initialize JWK set keyfunc")
			}
			d.keyFunc = kf
		} else {
			if len(d.signingKey) == 0 {
				return nil, errors.New("signature verification enabled without signing key or JWK set", errors.CategoryInternal)
			}
			d.keyFunc = d.hmacKeyFunc
		}
	}

	d.logVerificationModes()

	return d, nil
}

// WithLogger replaces the decoder's logger.
func (d *ClaimsDecoder) WithLogger(logger Logger) *ClaimsDecoder {
	if logger != nil {
		d.logger = logger
	}
	return d
}

// Decode produces Claims from a credential, or an AuthError. The source tag
// decides the unwrap strategy before the structural decode.
func (d *ClaimsDecoder) Decode(cred Credential) (*Claims, error) {
	raw := cred.Raw

	switch cred.Source {
	case SourceHeaderWrapped:
		token, err := d.unwrapSessionToken(raw)
		if err != nil {
			return nil, err
		}
		raw = token
	case SourceHeaderBearer, SourceHeaderRaw, SourceCookie:
		// Cookies may carry either a bare JWT or a wrapped envelope; only the
		// marker distinguishes them.
		if strings.HasPrefix(raw, WrappedTokenPrefix) {
			token, err := d.unwrapSessionToken(raw)
			if err != nil {
				return nil, err
			}
			raw = token
		}
	default:
		return nil, malformedToken(fmt.Errorf("unknown credential source %d", cred.Source))
	}

	claims, err := d.parseToken(raw)
	if err != nil {
		return nil, err
	}

	if err := d.verifyClaims(claims); err != nil {
		return nil, err
	}

	return claims, nil
}

// unwrapSessionToken strips the wrapped-token marker, base64-decodes the
// session envelope, and extracts its access token.
func (d *ClaimsDecoder) unwrapSessionToken(raw string) (string, error) {
	encoded := strings.TrimPrefix(raw, WrappedTokenPrefix)

	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		decoded, err = base64.StdEncoding.DecodeString(padBase64(encoded))
	}
	if err != nil {
		return "", malformedToken(err)
	}

	var envelope sessionEnvelope
	if err := json.Unmarshal(decoded, &envelope); err != nil {
		return "", malformedToken(err)
	}
	if envelope.AccessToken == "" {
		return "", malformedToken(fmt.Errorf("session envelope has no access_token"))
	}

	return envelope.AccessToken, nil
}

func (d *ClaimsDecoder) parseToken(raw string) (*Claims, error) {
	if strings.Count(raw, ".") != 2 {
		return nil, malformedToken(fmt.Errorf("token is not a compact JWS"))
	}

	claims := &Claims{}

	if d.verifySignature {
		token, err := jwt.ParseWithClaims(raw, claims, d.keyFunc, jwt.WithoutClaimsValidation())
		if err != nil {
			return nil, malformedToken(err)
		}
		if !token.Valid {
			return nil, malformedToken(fmt.Errorf("token signature rejected"))
		}
		return claims, nil
	}

	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, malformedToken(err)
	}
	return claims, nil
}

// verifyClaims applies the toggleable expiry and audience checks. Claim
// validation is always manual here so each check honors its own flag.
func (d *ClaimsDecoder) verifyClaims(claims *Claims) error {
	if d.verifyExp && claims.RegisteredClaims.ExpiresAt != nil {
		if claims.RegisteredClaims.ExpiresAt.Time.Before(time.Now()) {
			return ErrTokenExpired
		}
	}

	if d.verifyAud && len(d.audience) > 0 {
		if !audienceMatch(claims.RegisteredClaims.Audience, d.audience) {
			return errors.New("token audience mismatch", errors.CategoryAuth).
				WithTextCode(ErrTokenMalformed.TextCode).
				WithCode(errors.CodeUnauthorized).
				WithMetadata(map[string]any{"expected": d.audience})
		}
	}

	return nil
}

func (d *ClaimsDecoder) hmacKeyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		d.logger.Error("decoder encountered unexpected signing method", "alg", token.Header["alg"])
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return d.signingKey, nil
}

func (d *ClaimsDecoder) logVerificationModes() {
	if !d.verifySignature {
		d.logger.Warn("token signature verification disabled; decoded claims are trusted as-is")
	}
	if !d.verifyExp {
		d.logger.Warn("token expiry verification disabled; expired tokens will be accepted")
	}
	if !d.verifyAud {
		d.logger.Warn("token audience verification disabled")
	}
}

func jwkSetKeyfunc(urls []string) (jwt.Keyfunc, error) {
	opts := keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}

	m := make(map[string]keyfunc.Options, len(urls))
	for _, url := range urls {
		m[url] = opts
	}

	multi, err := keyfunc.GetMultiple(m, keyfunc.MultipleOptions{
		KeySelector: keyfunc.KeySelectorFirst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get JWK set URLs: %w", err)
	}
	return multi.Keyfunc, nil
}

func audienceMatch(tokenAud jwt.ClaimStrings, allowed []string) bool {
	for _, aud := range tokenAud {
		for _, want := range allowed {
			if aud == want {
				return true
			}
		}
	}
	return false
}

func malformedToken(err error) error {
	if IsTokenExpiredError(err) {
		return ErrTokenExpired
	}
	return errors.Wrap(err, errors.CategoryAuth, ErrTokenMalformed.Message).
		WithTextCode(ErrTokenMalformed.TextCode).
		WithCode(errors.CodeUnauthorized)
}

// padBase64 restores stripped standard-alphabet padding.
func padBase64(s string) string {
	if m := len(s) % 4; m != 0 {
		return s + strings.Repeat("=", 4-m)
	}
	return s
}
