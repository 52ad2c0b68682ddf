package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToText_StripsMarkupAndScripts(t *testing.T) {
	html := `<html><head><style>p{color:red}</style></head><body>
		<script>var x = 1;</script>
		<p>Thank you for applying to Stripe.</p>
		<p>We will be in touch.</p>
	</body></html>`

	text := HTMLToText(html)

	assert.Contains(t, text, "Thank you for applying to Stripe.")
	assert.Contains(t, text, "We will be in touch.")
	assert.NotContains(t, text, "var x")
	assert.NotContains(t, text, "color:red")
}

func TestHTMLToText_PlainTextPassthrough(t *testing.T) {
	text := HTMLToText("Just   a plain\n\nconfirmation body.")
	assert.Equal(t, "Just a plain confirmation body.", text)
}
