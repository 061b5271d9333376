package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demyz/dou-jobs-feed/internal/store"
)

func TestFormatJobMessage(t *testing.T) {
	salary := "$3000-5000"
	job := &store.Job{
		Title:       "Senior Go Engineer",
		URL:         "https://jobs.dou.ua/companies/acme/vacancies/12345/",
		Description: "<p>Build and run backend services.</p>",
		Salary:      &salary,
		Company:     store.Company{Name: "Acme"},
	}

	message := FormatJobMessage(job)

	expected := "<b>Senior Go Engineer. <i>Acme.</i> $3000-5000</b>\n\n" +
		"Build and run backend services.\n" +
		"<a href=\"https://jobs.dou.ua/companies/acme/vacancies/12345/\">https://jobs.dou.ua/companies/acme/vacancies/12345/</a>"
	assert.Equal(t, expected, message)
}

func TestFormatJobMessageWithoutCompanyAndSalary(t *testing.T) {
	job := &store.Job{
		Title:       "QA Engineer",
		URL:         "https://jobs.dou.ua/vacancies/1/",
		Description: "Manual testing.",
	}

	message := FormatJobMessage(job)

	assert.True(t, strings.HasPrefix(message, "<b>QA Engineer.</b>"))
	assert.NotContains(t, message, "<i>")
}

func TestFormatJobMessageEscapesMarkup(t *testing.T) {
	job := &store.Job{
		Title:       "C++ & Go <Developer>",
		URL:         "https://jobs.dou.ua/vacancies/2/",
		Description: "Work with \"legacy\" systems",
		Company:     store.Company{Name: "R&D Lab"},
	}

	message := FormatJobMessage(job)

	assert.Contains(t, message, "C++ &amp; Go &lt;Developer&gt;")
	assert.Contains(t, message, "<i>R&amp;D Lab.</i>")
	assert.Contains(t, message, "&quot;legacy&quot;")
}

func TestStripHTML(t *testing.T) {
	text := stripHTML("<p>First   line</p>\n<ul><li>item</li></ul>")
	assert.Equal(t, "First line item", text)
}

func TestTruncateTextKeepsShortInput(t *testing.T) {
	assert.Equal(t, "short", truncateText("short", 220))
}

func TestTruncateTextCutsAtRuneBoundary(t *testing.T) {
	input := strings.Repeat("п", 300)

	got := truncateText(input, 220)

	require.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, 223, len([]rune(got)))
	assert.NotContains(t, got, "�")
}

func TestJobKeyboard(t *testing.T) {
	job := &store.Job{
		ID:  "abc-123",
		URL: "https://jobs.dou.ua/vacancies/7/",
	}

	keyboard := JobKeyboard(job, "https://app.example.com")

	require.Len(t, keyboard.InlineKeyboard, 1)
	require.Len(t, keyboard.InlineKeyboard[0], 2)

	details := keyboard.InlineKeyboard[0][0]
	assert.Equal(t, "📄 Details", details.Text)
	require.NotNil(t, details.WebApp)
	assert.Equal(t, "https://app.example.com/#/job/abc-123", details.WebApp.URL)

	external := keyboard.InlineKeyboard[0][1]
	assert.Equal(t, "🔗 Dou", external.Text)
	assert.Equal(t, job.URL, external.URL)
}
