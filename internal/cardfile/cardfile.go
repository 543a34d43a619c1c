// Package cardfile stores vCard records in .vcf/.vcard files.
//
// It is the I/O side of the card package: extension checks, reading one or
// all records of a file, atomic writes, and the small edit workflows
// (rename a contact, create a card, copy a card).
package cardfile

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/facebookgo/atomicfile"

	"github.com/tartampluch/go-vcf/internal/card"
	"github.com/tartampluch/go-vcf/internal/config"
)

// ValidExtension reports whether name ends in .vcf or .vcard, ignoring case.
func ValidExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return slices.Contains(config.CardExtensions, ext)
}

// Read parses exactly one record from path. A nil parser uses the defaults.
func Read(path string, p *card.Parser) (*card.Record, error) {
	if !ValidExtension(path) {
		return nil, &card.Error{Kind: card.InvalidFile, Message: config.ErrFileExtension}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &card.Error{Kind: card.InvalidFile, Message: config.ErrFileOpen, Err: err}
	}
	defer func() { _ = f.Close() }()

	if p == nil {
		p = &card.Parser{}
	}
	return p.Parse(card.NewLineReader(f))
}

// ReadAll parses every record of path. Malformed records are logged and
// skipped; only a failure to open or read the file is returned.
func ReadAll(path string, p *card.Parser) ([]*card.Record, error) {
	if !ValidExtension(path) {
		return nil, &card.Error{Kind: card.InvalidFile, Message: config.ErrFileExtension}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &card.Error{Kind: card.InvalidFile, Message: config.ErrFileOpen, Err: err}
	}
	defer func() { _ = f.Close() }()

	return DecodeAll(f, path, p)
}

// DecodeAll reads every record of r. source only labels log lines.
func DecodeAll(r io.Reader, source string, p *card.Parser) ([]*card.Record, error) {
	if p == nil {
		p = &card.Parser{}
	}
	dec := p.NewDecoder(card.NewLineReader(r))

	var records []*card.Record
	for {
		rec, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			// A failing reader ends the stream; an oversized line only spoils its card.
			if card.KindOf(err) == card.InvalidFile && errors.Unwrap(err) != nil {
				return records, err
			}
			slog.Warn(config.MsgSkippedCard,
				config.LogKeyComponent, config.CompFile,
				config.LogKeyFile, source,
				config.LogKeyKind, card.KindOf(err).String(),
				config.LogKeyError, err)
			continue
		}
		records = append(records, rec)
	}
}

// Write serializes rec into path, replacing it atomically. A nil encoder
// writes unfolded lines.
func Write(path string, rec *card.Record, enc *card.Encoder) error {
	if !ValidExtension(path) {
		return &card.Error{Kind: card.WriteFailure, Message: config.ErrFileExtension}
	}
	if rec == nil {
		return &card.Error{Kind: card.InvalidRecord, Message: config.ErrNilRecord}
	}

	f, err := atomicfile.New(path, config.FilePermCard)
	if err != nil {
		return &card.Error{Kind: card.WriteFailure, Message: config.ErrFileWrite, Err: err}
	}

	e := card.NewEncoder(f)
	if enc != nil {
		e.FoldWidth = enc.FoldWidth
	}
	if err := e.Encode(rec); err != nil {
		_ = f.Abort()
		return err
	}
	if err := f.Close(); err != nil {
		return &card.Error{Kind: card.WriteFailure, Message: config.ErrFileWrite, Err: err}
	}

	slog.Debug(config.MsgCardWritten,
		config.LogKeyComponent, config.CompFile,
		config.LogKeyFile, path,
		config.LogKeyName, rec.Name())
	return nil
}

// Summary returns the Describe dump of the card in path, or a line starting
// with "Error: " followed by the error kind when the card cannot be read.
func Summary(path string) string {
	rec, err := Read(path, nil)
	if err != nil {
		return config.SummaryErrorPrefix + card.KindOf(err).String()
	}
	defer rec.Release()
	return rec.Describe()
}

// UpdateDisplayName reads path, replaces the display name, validates the
// result and writes it back.
func UpdateDisplayName(path, name string, enc *card.Encoder) error {
	rec, err := Read(path, nil)
	if err != nil {
		return err
	}
	defer rec.Release()

	if err := rec.SetDisplayName(name); err != nil {
		return err
	}
	if err := card.Validate(rec); err != nil {
		return err
	}
	return Write(path, rec, enc)
}

// Create writes a new card holding only a display name. It refuses to
// overwrite an existing file.
func Create(path, name string, enc *card.Encoder) error {
	if _, err := os.Stat(path); err == nil {
		return &card.Error{Kind: card.InvalidFile, Message: config.ErrFileExists}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return &card.Error{Kind: card.InvalidFile, Message: config.ErrFileOpen, Err: err}
	}
	if name == "" {
		return &card.Error{Kind: card.InvalidProperty, Message: config.ErrEmptyDisplayName}
	}

	rec := card.NewRecord(name)
	defer rec.Release()
	if err := card.Validate(rec); err != nil {
		return err
	}
	return Write(path, rec, enc)
}

// Copy validates the card in src and writes it to dst.
func Copy(src, dst string, enc *card.Encoder) error {
	rec, err := Read(src, nil)
	if err != nil {
		return err
	}
	defer rec.Release()

	if err := card.Validate(rec); err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	return Write(dst, rec, enc)
}

// List returns the card files directly inside dir, sorted by name.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &card.Error{Kind: card.InvalidFile, Message: config.ErrFileOpen, Err: err}
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && ValidExtension(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
