package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/demyz/dou-jobs-feed/internal/logging"
	"github.com/demyz/dou-jobs-feed/internal/store"
	"github.com/demyz/dou-jobs-feed/pkg/utils"
)

// InitDataHeader carries the signed session data from the web mini-app
const InitDataHeader = "X-Telegram-Init-Data"

// SubscriberContextKey is where the authenticated subscriber is stored
// on the request context
const SubscriberContextKey = "subscriber"

// webAppDataKey seeds the secret-key derivation defined by the
// Telegram WebApp validation scheme
const webAppDataKey = "WebAppData"

// TelegramUser is the user object embedded in validated init data
type TelegramUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
}

// TelegramAuth validates the signed init data header and attaches the
// upserted subscriber to the request context. Requests with a missing
// or invalid signature get a 401 with the standard envelope.
func TelegramAuth(botToken string, s *store.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			logger := logging.GetGlobalLogger()

			initData := c.Request().Header.Get(InitDataHeader)
			if initData == "" {
				logger.Warn("Missing init data header")
				return utils.NewUnauthorizedError("Unauthorized")
			}

			if !ValidateInitData(initData, botToken) {
				logger.Warn("Invalid init data signature")
				return utils.NewUnauthorizedError("Unauthorized")
			}

			user, err := ParseUserFromInitData(initData)
			if err != nil {
				logger.Warn("Unable to parse user from init data", map[string]interface{}{
					"error": err.Error(),
				})
				return utils.NewUnauthorizedError("Unauthorized")
			}

			subscriber, err := s.UpsertSubscriber(c.Request().Context(), user.ID, store.SubscriberProfile{
				FirstName:    user.FirstName,
				LastName:     user.LastName,
				Username:     user.Username,
				LanguageCode: user.LanguageCode,
			})
			if err != nil {
				logger.Error("Failed to upsert subscriber during auth", map[string]interface{}{
					"telegram_id": user.ID,
					"error":       err.Error(),
				})
				return utils.NewInternalServerError("Internal server error")
			}

			c.Set(SubscriberContextKey, subscriber)
			return next(c)
		}
	}
}

// SubscriberFromContext returns the authenticated subscriber set by
// TelegramAuth, or nil outside an authenticated route.
func SubscriberFromContext(c echo.Context) *store.Subscriber {
	subscriber, _ := c.Get(SubscriberContextKey).(*store.Subscriber)
	return subscriber
}

// ValidateInitData checks the HMAC-SHA256 signature over the
// alphabetically sorted key=value parameter string, keyed by a secret
// derived from the bot token.
func ValidateInitData(initData, botToken string) bool {
	params, err := url.ParseQuery(initData)
	if err != nil {
		return false
	}

	hash := params.Get("hash")
	if hash == "" {
		return false
	}
	params.Del("hash")

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+params.Get(key))
	}
	dataCheckString := strings.Join(pairs, "\n")

	secretMac := hmac.New(sha256.New, []byte(webAppDataKey))
	secretMac.Write([]byte(botToken))
	secretKey := secretMac.Sum(nil)

	mac := hmac.New(sha256.New, secretKey)
	mac.Write([]byte(dataCheckString))
	calculated := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(calculated), []byte(hash))
}

// ParseUserFromInitData extracts the user object from validated init data
func ParseUserFromInitData(initData string) (*TelegramUser, error) {
	params, err := url.ParseQuery(initData)
	if err != nil {
		return nil, err
	}

	var user TelegramUser
	if err := json.Unmarshal([]byte(params.Get("user")), &user); err != nil {
		return nil, err
	}

	return &user, nil
}
