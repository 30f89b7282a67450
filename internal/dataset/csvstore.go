package dataset

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/gocarina/gocsv"

	"github.com/albapepper/scoracle-predict/internal/config"
	"github.com/albapepper/scoracle-predict/internal/features"
	"github.com/albapepper/scoracle-predict/internal/provider"
)

// ErrArtifactNotFound is returned when a season or corpus file is missing.
var ErrArtifactNotFound = fmt.Errorf("dataset artifact not found: %w", fs.ErrNotExist)

// ManifestFile lists the season files behind the last corpus build.
const ManifestFile = "manifest.csv"

// ManifestEntry is one line of the manifest.
type ManifestEntry struct {
	Season string `csv:"season"`
	File   string `csv:"file"`
	Rows   int    `csv:"rows"`
	Start  string `csv:"start"`
	End    string `csv:"end"`
}

// CSVStore reads and writes datasets under a directory.
type CSVStore struct {
	dir string
}

func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{dir: dir}
}

// Dir returns the store's root directory.
func (s *CSVStore) Dir() string { return s.dir }

// Path returns the location of a named artifact.
func (s *CSVStore) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// CorpusName names a corpus spanning first through last
// ("all_games_2018-22.csv" for 2018-19 through 2021-22).
func CorpusName(first, last provider.Season) string {
	return fmt.Sprintf(config.CorpusFilePattern, first.StartYear, last.EndYear()%100)
}

// Save writes d to <dir>/<d.Name>, replacing any previous file.
func (s *CSVStore) Save(d *Dataset) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	path := s.Path(d.Name)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", tmp, err)
	}

	if err := writeDataset(f, d); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", d.Name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("rename %s: %w", tmp, err)
	}
	return path, nil
}

// Load reads a named artifact.
func (s *CSVStore) Load(name string) (*Dataset, error) {
	f, err := os.Open(s.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrArtifactNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	d, err := readDataset(f, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return d, nil
}

// LoadSeason reads a season dataset.
func (s *CSVStore) LoadSeason(season provider.Season) (*Dataset, error) {
	return s.Load(SeasonName(season))
}

// SaveManifest replaces the manifest.
func (s *CSVStore) SaveManifest(entries []ManifestEntry) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	f, err := os.Create(s.Path(ManifestFile))
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	defer f.Close()
	return gocsv.MarshalFile(&entries, f)
}

// LoadManifest reads the manifest written by the last corpus build.
func (s *CSVStore) LoadManifest() ([]ManifestEntry, error) {
	f, err := os.Open(s.Path(ManifestFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", ManifestFile, ErrArtifactNotFound)
		}
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	var entries []ManifestEntry
	if err := gocsv.UnmarshalFile(f, &entries); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return entries, nil
}

// ---------------------------------------------------------------------------
// Row codec
// ---------------------------------------------------------------------------

func writeDataset(w io.Writer, d *Dataset) error {
	cw := gocsv.DefaultCSVWriter(w)
	if err := cw.Write(d.Columns); err != nil {
		return err
	}
	for _, r := range d.Rows {
		if err := cw.Write(r.Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readDataset(r io.Reader, name string) (*Dataset, error) {
	records, err := gocsv.DefaultCSVReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("missing header")
	}

	header := records[0]
	if !slices.Equal(header, features.Columns(true)) && !slices.Equal(header, features.Columns(false)) {
		return nil, fmt.Errorf("unexpected header with %d columns: %w", len(header), ErrSchemaMismatch)
	}

	d := &Dataset{Name: name, Columns: header, Rows: make([]features.Row, 0, len(records)-1)}
	for i, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("line %d has %d columns, header has %d: %w", i+2, len(rec), len(header), ErrSchemaMismatch)
		}
		row, err := features.ParseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		d.Rows = append(d.Rows, row)
	}
	return d, nil
}
