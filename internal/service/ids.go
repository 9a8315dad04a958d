package service

import (
	"crypto/rand"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxSlugLen = 40

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(fileName string) string {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	slug := strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(base), "-"), "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return slug
}

func randomSuffix() string {
	bytes := make([]byte, 4)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// newBankID returns {slug}-{epoch-ms}-{suffix}, or {epoch-ms}-{suffix} when
// the file name has nothing to slug.
func newBankID(fileName string, now time.Time) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if slug := slugify(fileName); slug != "" {
		return slug + "-" + ms + "-" + randomSuffix()
	}
	return ms + "-" + randomSuffix()
}

func newItemID() string {
	return uuid.NewString()
}
