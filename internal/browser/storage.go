package browser

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/playwright-community/playwright-go"
)

// Cookie is a browser cookie as exported by cookie-editor style extensions.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite"`
}

// ReadStorageState loads and validates a storage-state blob.
func ReadStorageState(path string) (*playwright.StorageState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state playwright.StorageState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse storage state %s: %w", path, err)
	}
	return &state, nil
}

// WriteStorageState replaces path atomically so a crash never leaves half a profile.
func WriteStorageState(path string, state *playwright.StorageState) error {
	if state == nil {
		return errors.New("nil storage state")
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data, 0600)
}

// LoadCookies reads an exported cookie list and converts it to playwright cookies.
func LoadCookies(path string) ([]playwright.Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("parse cookies %s: %w", path, err)
	}

	pwCookies := make([]playwright.Cookie, len(cookies))
	for i, c := range cookies {
		pwCookies[i] = c.ToPlayWright()
	}
	return pwCookies, nil
}

// StorageStateFromCookies builds a profile blob out of an exported cookie file.
func StorageStateFromCookies(cookiePath string) (*playwright.StorageState, error) {
	cookies, err := LoadCookies(cookiePath)
	if err != nil {
		return nil, err
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("no cookies in %s", cookiePath)
	}
	return &playwright.StorageState{Cookies: cookies}, nil
}

func (c Cookie) ToPlayWright() playwright.Cookie {
	pwCookie := playwright.Cookie{
		Name:   c.Name,
		Value:  c.Value,
		Domain: c.Domain,
		Path:   c.Path,
	}
	if pwCookie.Path == "" {
		pwCookie.Path = "/"
	}

	//session cookies are exported with expires <= 0; playwright wants -1
	pwCookie.Expires = -1
	if c.Expires > 0 {
		pwCookie.Expires = c.Expires
	}

	pwCookie.HttpOnly = c.HTTPOnly
	pwCookie.Secure = c.Secure

	switch c.SameSite {
	case "Lax", "lax":
		pwCookie.SameSite = playwright.SameSiteAttributeLax
	case "Strict", "strict":
		pwCookie.SameSite = playwright.SameSiteAttributeStrict
	case "None", "none", "no_restriction":
		pwCookie.SameSite = playwright.SameSiteAttributeNone
	}

	return pwCookie
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
