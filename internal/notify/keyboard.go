package notify

import (
	"fmt"

	"github.com/demyz/dou-jobs-feed/internal/store"
	"github.com/demyz/dou-jobs-feed/internal/telegram"
)

// JobKeyboard builds the inline keyboard attached to a job notification:
// a deep link into the web mini-app keyed by posting id, plus the
// external posting link.
func JobKeyboard(job *store.Job, webAppURL string) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{
				{
					Text:   "📄 Details",
					WebApp: &telegram.WebAppInfo{URL: fmt.Sprintf("%s/#/job/%s", webAppURL, job.ID)},
				},
				{
					Text: "🔗 Dou",
					URL:  job.URL,
				},
			},
		},
	}
}
