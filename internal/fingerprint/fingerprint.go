// Package fingerprint derives the four fingerprint families of spec §3/§4.A
// from a raw post: a pure, deterministic function stable across restarts.
// Normalization changes require bumping Version, which migrations use to
// decide whether a stored fingerprint needs re-deriving.
package fingerprint

import (
	"encoding/binary"
	"encoding/hex"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/minio/highwayhash"
	"golang.org/x/crypto/blake2b"
)

// Version tags the normalization algorithm. Bump it whenever the rules below
// change; existing fingerprints must be re-derived under the new version.
const Version = 1

// highwayKey is a fixed 32-byte key for the HighwayHash instances below.
// It only needs to be stable across process restarts, not secret.
var highwayKey = func() []byte {
	key := make([]byte, 32)
	binary.LittleEndian.PutUint64(key[0:], 0x736574_6b61_6670)
	binary.LittleEndian.PutUint64(key[8:], 0x6669_6e67_6572)
	binary.LittleEndian.PutUint64(key[16:], 0x7072_696e_7456)
	binary.LittleEndian.PutUint64(key[24:], uint64(Version))
	return key
}()

var (
	zeroWidthRE = regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}]`)
	controlRE   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	whitespaceRE = regexp.MustCompile(`\s+`)
)

// keepRune reports whether r survives normalization: Cyrillic and Latin
// letters, and digits. Everything else (punctuation, emoji, symbols) is
// dropped, per spec §4.A.
func keepRune(r rune) bool {
	if unicode.IsDigit(r) {
		return true
	}
	if unicode.Is(unicode.Cyrillic, r) || unicode.Is(unicode.Latin, r) {
		return true
	}
	return unicode.IsSpace(r)
}

// Normalize lowercases, strips zero-width/control characters and surrogate
// halves, collapses whitespace, and keeps only Cyrillic/Latin letters,
// digits, and single spaces, per spec §4.A.
func Normalize(text string) string {
	// Drop unpaired surrogate halves that survive invalid UTF-8 decoding as
	// the replacement character; strings.Map below then filters everything
	// else that isn't a letter/digit/space.
	cleaned := strings.Map(func(r rune) rune {
		if r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, text)
	cleaned = zeroWidthRE.ReplaceAllString(cleaned, "")
	cleaned = controlRE.ReplaceAllString(cleaned, "")
	cleaned = strings.ToLower(cleaned)
	cleaned = strings.Map(func(r rune) rune {
		if keepRune(r) {
			return r
		}
		return -1
	}, cleaned)
	cleaned = whitespaceRE.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// LIP computes the structural fingerprint: "owner_postid".
func LIP(ownerID, postID int64) string {
	return strconv.FormatInt(ownerID, 10) + "_" + strconv.FormatInt(postID, 10)
}

// hashText runs HighwayHash-64 over the UTF-8 bytes of the (already
// normalized) string and hex-encodes the digest.
func hashText(s string) string {
	h, err := highwayhash.New64(highwayKey)
	if err != nil {
		// highwayKey is always exactly 32 bytes; this cannot happen.
		panic(err)
	}
	_, _ = h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

// TextFull returns the stable hash of the full normalized text.
func TextFull(normalized string) string {
	return hashText(normalized)
}

// CoreSlice returns the middle 20-70% character slice of normalized text
// used for near-duplicate detection, per spec §4.A: if the text is shorter
// than 50 runes, the full text is used unsliced.
func CoreSlice(normalized string) string {
	runes := []rune(normalized)
	l := len(runes)
	if l < 50 {
		return normalized
	}
	start := int(float64(l) * 0.20)
	end := int(float64(l) * 0.70)
	return string(runes[start:end])
}

// TextCore returns the stable hash of CoreSlice(normalized).
func TextCore(normalized string) string {
	return hashText(CoreSlice(normalized))
}

// MediaAttachment is the minimal shape Media needs from an attachment.
type MediaAttachment struct {
	Type string
	ID   string
}

// mediaContributes reports whether an attachment type contributes to the
// media fingerprint: only photo and video do, per spec §4.A.
func mediaContributes(attachmentType string) bool {
	switch attachmentType {
	case "photo", "video":
		return true
	default:
		return false
	}
}

// Media returns the lexicographically sorted set of identifiers of photo
// and video attachments.
func Media(attachments []MediaAttachment) []string {
	ids := make([]string, 0, len(attachments))
	for _, a := range attachments {
		if mediaContributes(a.Type) {
			ids = append(ids, a.ID)
		}
	}
	sort.Strings(ids)
	return dedupeSorted(ids)
}

func dedupeSorted(ids []string) []string {
	if len(ids) < 2 {
		return ids
	}
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}

// MediaDigest returns a single stable Blake2b-128 digest summarizing the
// sorted media identifier set, used by the store to index the media
// fingerprint family without storing a variable-length slice key.
func MediaDigest(ids []string) string {
	h, err := blake2b.New(16, nil)
	if err != nil {
		panic(err)
	}
	for _, id := range ids {
		_, _ = h.Write([]byte(id))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// RawPost is the minimal shape Derive needs; callers adapt core.Post into
// this so the fingerprinter stays a pure function with no core dependency.
type RawPost struct {
	OwnerID     int64
	PostID      int64
	Text        string
	Attachments []MediaAttachment
}

// Result bundles the four fingerprint families plus the media digest.
type Result struct {
	LIP      string
	TextFull string
	TextCore string
	Media    []string
	MediaKey string
}

// Derive computes the full fingerprint set for a post, per spec §4.A.
func Derive(p RawPost) Result {
	normalized := Normalize(p.Text)
	media := Media(p.Attachments)
	return Result{
		LIP:      LIP(p.OwnerID, p.PostID),
		TextFull: TextFull(normalized),
		TextCore: TextCore(normalized),
		Media:    media,
		MediaKey: MediaDigest(media),
	}
}
