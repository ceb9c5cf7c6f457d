package localization

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/webscrapbook/wsb-server/pkg/testutil"
)

func writeMessages(t *testing.T, dir, file, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
}

func TestGet(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	writeMessages(t, dir, "en.json", `{
		"app_name": "WebScrapBook",
		"greeting": "Hello, {{.Name}}!"
	}`)
	writeMessages(t, dir, "zh-TW.json", `{
		"app_name": "網頁擷取筆記本"
	}`)

	i18n, err := New([]string{dir}, "zh-TW")
	require.NoError(err)

	require.Equal("網頁擷取筆記本", i18n.Get("app_name", nil))

	// Ids missing from the preferred language fall back to the default
	// language, then to the id itself.
	require.Equal("Hello, Ada!", i18n.Get("greeting", map[string]interface{}{"Name": "Ada"}))
	require.Equal("no_such_id", i18n.Get("no_such_id", nil))
}

func TestNew_DirectoryPriority(t *testing.T) {
	require := require.New(t)

	themeDir := t.TempDir()
	userDir := t.TempDir()
	writeMessages(t, themeDir, "en.json", `{"app_name": "From theme"}`)
	writeMessages(t, userDir, "en.json", `{
		"app_name": "From user",
		"user_only": "User only"
	}`)

	// The theme directory comes first, so its definitions win; ids it
	// does not define still resolve from later directories.
	i18n, err := New([]string{themeDir, userDir}, "en")
	require.NoError(err)
	require.Equal("From theme", i18n.Get("app_name", nil))
	require.Equal("User only", i18n.Get("user_only", nil))

	// Reversing the search order flips the winner.
	i18n, err = New([]string{userDir, themeDir}, "en")
	require.NoError(err)
	require.Equal("From user", i18n.Get("app_name", nil))

	// Priority holds when the lookup is served through the
	// default-language fallback rather than the preferred language.
	i18n, err = New([]string{themeDir, userDir}, "zh-TW")
	require.NoError(err)
	require.Equal("From theme", i18n.Get("app_name", nil))
	require.Equal("User only", i18n.Get("user_only", nil))
}

func TestNew_MissingAndUnusable(t *testing.T) {
	require := require.New(t)

	defer testutil.DisableLogging()()

	dir := t.TempDir()
	writeMessages(t, dir, "en.json", `{"app_name": "WebScrapBook"}`)
	writeMessages(t, dir, "broken.json", `{not json`)
	writeMessages(t, dir, "notes.txt", `ignored`)

	// Missing directories and unusable files are skipped, not fatal.
	i18n, err := New([]string{filepath.Join(dir, "no_such_dir"), dir}, "en")
	require.NoError(err)
	require.Equal("WebScrapBook", i18n.Get("app_name", nil))
}

func TestLanguages(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	writeMessages(t, dir, "en.json", `{"app_name": "WebScrapBook"}`)
	writeMessages(t, dir, "zh-TW.json", `{"app_name": "網頁擷取筆記本"}`)

	i18n, err := New([]string{dir})
	require.NoError(err)

	require.Contains(i18n.Languages(), language.English)
	require.Contains(i18n.Languages(), language.MustParse("zh-TW"))

	// With no preferred language, lookups use the default.
	require.Equal("WebScrapBook", i18n.Get("app_name", nil))
}
