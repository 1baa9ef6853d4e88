package pdf

import (
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"
)

// readMetadata extracts the trailer Info dictionary. A damaged dictionary
// yields whatever fields could be read before the failure.
func readMetadata(r *pdf.Reader) (meta Metadata) {
	defer func() {
		// Metadata is optional; a panic here must not fail the load.
		_ = recover()
	}()

	trailer := r.Trailer()
	if trailer.IsNull() {
		return meta
	}
	info := trailer.Key("Info")
	if info.IsNull() {
		return meta
	}

	field := func(key string) string {
		v := info.Key(key)
		if v.IsNull() || v.Kind() != pdf.String {
			return ""
		}
		return norm.NFC.String(strings.TrimSpace(v.Text()))
	}

	meta.Title = field("Title")
	meta.Author = field("Author")
	meta.Subject = field("Subject")
	meta.Creator = field("Creator")
	meta.Producer = field("Producer")
	return meta
}
