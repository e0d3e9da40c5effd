package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		name       string
		ua         string
		deviceType string
		platform   string
		browser    string
		bot        bool
	}{
		{
			name:       "android phone",
			ua:         "Mozilla/5.0 (Linux; Android 12; Pixel 6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Mobile Safari/537.36",
			deviceType: "mobile",
			platform:   "android",
			browser:    "Chrome",
		},
		{
			name:       "windows desktop",
			ua:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Safari/537.36",
			deviceType: "desktop",
			platform:   "windows",
			browser:    "Chrome",
		},
		{
			name:       "bot",
			ua:         "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
			deviceType: "desktop",
			bot:        true,
		},
		{
			name:       "empty",
			ua:         "",
			deviceType: "unknown",
			platform:   "unknown",
			browser:    "Unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseUserAgent(tt.ua)
			assert.Equal(t, tt.deviceType, info.DeviceType)
			assert.Equal(t, tt.bot, info.IsBot)
			if tt.platform != "" {
				assert.Equal(t, tt.platform, info.Platform)
			}
			if tt.browser != "" {
				assert.Equal(t, tt.browser, info.Browser)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"real ip", map[string]string{"X-Real-IP": "203.0.113.7"}, "203.0.113.7"},
		{"first public forwarded", map[string]string{"X-Forwarded-For": "10.0.0.1, 198.51.100.4, 203.0.113.9"}, "198.51.100.4"},
		{"only private forwarded", map[string]string{"X-Forwarded-For": "10.0.0.1, 192.168.1.2"}, "10.0.0.1"},
		{"remote address", nil, "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, ClientIP(c))
		})
	}
}

func TestIsLocalhost(t *testing.T) {
	assert.True(t, IsLocalhost("127.0.0.1"))
	assert.True(t, IsLocalhost("::1"))
	assert.True(t, IsLocalhost("localhost"))
	assert.False(t, IsLocalhost("203.0.113.7"))
}
