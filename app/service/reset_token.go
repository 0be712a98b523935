package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
)

const resetTokenKeySalt = "ms-go-accounts.PasswordResetTokenGenerator"

var resetTokenEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

// ResetTokenGenerator derives stateless password reset tokens. A token is
// "<base36 timestamp>-<hmac>" where the hmac covers the account id, password
// hash, last login and email, so any change to those voids the token.
type ResetTokenGenerator struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewResetTokenGenerator(secret string, ttl time.Duration) *ResetTokenGenerator {
	key := sha256.Sum256([]byte(resetTokenKeySalt + secret))
	return &ResetTokenGenerator{key: key[:], ttl: ttl, now: time.Now}
}

func (g *ResetTokenGenerator) Make(account *entity.Account) string {
	return g.makeWithTimestamp(account, g.secondsSinceEpoch(g.now()))
}

func (g *ResetTokenGenerator) Check(account *entity.Account, token string) bool {
	if account == nil || token == "" {
		return false
	}

	tsPart, _, ok := strings.Cut(token, "-")
	if !ok {
		return false
	}
	ts, err := strconv.ParseInt(tsPart, 36, 64)
	if err != nil || ts < 0 {
		return false
	}

	expected := g.makeWithTimestamp(account, ts)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(token)) != 1 {
		return false
	}

	age := g.secondsSinceEpoch(g.now()) - ts
	if age < 0 || time.Duration(age)*time.Second > g.ttl {
		return false
	}

	return true
}

func (g *ResetTokenGenerator) makeWithTimestamp(account *entity.Account, ts int64) string {
	mac := hmac.New(sha256.New, g.key)
	mac.Write([]byte(resetHashValue(account, ts)))
	sum := hex.EncodeToString(mac.Sum(nil))

	// every second character keeps the token short
	short := make([]byte, 0, len(sum)/2)
	for i := 0; i < len(sum); i += 2 {
		short = append(short, sum[i])
	}

	return strconv.FormatInt(ts, 36) + "-" + string(short)
}

func (g *ResetTokenGenerator) secondsSinceEpoch(t time.Time) int64 {
	return int64(t.Sub(resetTokenEpoch) / time.Second)
}

func resetHashValue(account *entity.Account, ts int64) string {
	lastLogin := ""
	if account.LastLogin.Valid {
		// DATETIME columns drop sub-second precision.
		lastLogin = account.LastLogin.Time.UTC().Truncate(time.Second).Format("2006-01-02 15:04:05")
	}

	return strconv.FormatUint(account.ID, 10) +
		account.PasswordHash +
		lastLogin +
		strconv.FormatInt(ts, 10) +
		account.Email
}

// EncodeUID renders an account id as URL-safe base64 without padding.
func EncodeUID(id uint64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(id, 10)))
}

func DecodeUID(uid string) (uint64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(uid, "="))
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(string(raw), 10, 64)
}
