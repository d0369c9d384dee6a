package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/canmi21/rfs/internal/filelock"
	"github.com/canmi21/rfs/pkg/pathutil"
	"github.com/canmi21/rfs/pkg/rfserrors"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const metadataDirName = "metadata"
const listingFileName = "metadata.json"

// maxCIDMintAttempts bounds the re-mint loop for a freshly generated CID
// that collides with one already present in the listing (or, for files,
// with an existing "<cid>.json" sibling). The 62^5 CID space makes a
// collision within one listing rare; exhausting this many attempts in a
// row means something is already badly wrong, so the caller is handed an
// Internal error instead of looping forever.
const maxCIDMintAttempts = 32

// listingHasCID reports whether any entry in listing already uses cid,
// since a directory's own CID doubles as its physical folder name and must
// stay unique among its siblings.
func listingHasCID(listing DirectoryListing, cid string) bool {
	for _, entry := range listing {
		switch entry.Type {
		case EntryTypeFile:
			if entry.File != nil && entry.File.CID == cid {
				return true
			}
		case EntryTypeDirectory:
			if entry.Directory != nil && entry.Directory.CID == cid {
				return true
			}
		}
	}
	return false
}

// mintDirectoryCID draws a CID guaranteed (within maxCIDMintAttempts) not to
// collide with any sibling already present in listing.
func mintDirectoryCID(listing DirectoryListing) (string, error) {
	for attempt := 0; attempt < maxCIDMintAttempts; attempt++ {
		cid := pathutil.GenerateCID()
		if !listingHasCID(listing, cid) {
			return cid, nil
		}
	}
	return "", rfserrors.NewStoreError(nil, rfserrors.ErrorCodeInternal,
		"exhausted CID mint attempts").WithDetail("attempts", maxCIDMintAttempts)
}

// mintFileCID draws a CID guaranteed (within maxCIDMintAttempts) not to
// collide with any sibling entry's CID, nor with an existing "<cid>.json"
// file already sitting in dirPath (e.g. left behind by a prior aborted run,
// per the file lock's best-effort re-execution tolerance).
func mintFileCID(dirPath string, listing DirectoryListing) (string, error) {
	for attempt := 0; attempt < maxCIDMintAttempts; attempt++ {
		cid := pathutil.GenerateCID()
		if listingHasCID(listing, cid) {
			continue
		}
		if _, err := os.Stat(filepath.Join(dirPath, cid+".json")); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return "", rfserrors.ClassifyIOError(err, filepath.Join(dirPath, cid+".json"))
		}
		return cid, nil
	}
	return "", rfserrors.NewStoreError(nil, rfserrors.ErrorCodeInternal,
		"exhausted CID mint attempts").WithDetail("attempts", maxCIDMintAttempts)
}

// Config carries the dependencies a Manager needs.
type Config struct {
	Logger       *zap.SugaredLogger
	DirCacheSize int // number of resolved virtual-dir -> physical-path entries cached; 0 disables.
}

// Manager maintains the metadata tree rooted at "<poolRoot>/metadata":
// directory listings, file block maps, and the locking and propagation that
// keep them consistent. Each call names the pool root it operates on, so
// one Manager can serve several pools.
type Manager struct {
	log      *zap.SugaredLogger
	dirCache *lru.Cache[string, string]
}

// New constructs a Manager.
func New(config Config) (*Manager, error) {
	log := config.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	var dirCache *lru.Cache[string, string]
	if config.DirCacheSize > 0 {
		c, err := lru.New[string, string](config.DirCacheSize)
		if err != nil {
			return nil, fmt.Errorf("metadata: building resolved-dir cache: %w", err)
		}
		dirCache = c
	}

	return &Manager{log: log, dirCache: dirCache}, nil
}

// ListDirectory returns the listing at rfsDirPath, an empty listing if the
// directory has never had an entry written to it.
func (m *Manager) ListDirectory(ctx context.Context, poolRoot, rfsDirPath string) (DirectoryListing, error) {
	components, err := pathutil.ValidateAndSplitPath(rfsDirPath)
	if err != nil {
		return nil, err
	}

	target, err := m.resolveDirPath(ctx, poolRoot, components)
	if err != nil {
		return nil, err
	}

	return m.readListing(target)
}

// CreateFile writes a new file's block map, adds its entry to the target
// directory's listing, and propagates the size delta up the tree. It
// returns rfserrors.ErrorCodeEntryAlreadyExists if filename is already
// present in the directory.
func (m *Manager) CreateFile(ctx context.Context, poolRoot, rfsDirPath, filename string, fileMeta FileMetadata) error {
	components, err := pathutil.ValidateAndSplitPath(rfsDirPath)
	if err != nil {
		return err
	}
	if err := pathutil.ValidateComponent(filename); err != nil {
		return err
	}

	target, err := m.resolveDirPath(ctx, poolRoot, components)
	if err != nil {
		return err
	}

	lock, err := filelock.Acquire(ctx, m.log, filepath.Join(target, listingFileName))
	if err != nil {
		return err
	}
	defer m.release(lock)

	listing, err := m.readListing(target)
	if err != nil {
		return err
	}
	if _, exists := listing[filename]; exists {
		return rfserrors.NewEntryAlreadyExistsError(filename)
	}

	cid, err := mintFileCID(target, listing)
	if err != nil {
		return err
	}
	if err := m.writeFileBlockMap(target, cid, fileMeta); err != nil {
		return err
	}

	listing[filename] = NewFileEntry(FileEntry{
		CID:        cid,
		Size:       fileMeta.Size,
		CreatedAt:  fileMeta.CreatedAt,
		ModifiedAt: fileMeta.ModifiedAt,
	})
	if err := m.writeListing(target, listing); err != nil {
		return err
	}

	m.log.Infow("created file", "dir", rfsDirPath, "filename", filename, "cid", cid, "size", fileMeta.Size)
	return m.propagateUpdate(ctx, poolRoot, components, int64(fileMeta.Size))
}

// propagateUpdate walks from dirComponents up to the pool root, adding
// sizeDelta to each ancestor directory's recorded size and refreshing its
// modification time. It stops silently once it reaches the root, since the
// root itself has no parent listing entry to update.
func (m *Manager) propagateUpdate(ctx context.Context, poolRoot string, dirComponents []string, sizeDelta int64) error {
	for len(dirComponents) > 0 {
		childName := dirComponents[len(dirComponents)-1]
		parentComponents := dirComponents[:len(dirComponents)-1]

		parentPath, err := m.resolveDirPath(ctx, poolRoot, parentComponents)
		if err != nil {
			return err
		}

		lock, err := filelock.Acquire(ctx, m.log, filepath.Join(parentPath, listingFileName))
		if err != nil {
			return err
		}

		parentListing, err := m.readListing(parentPath)
		if err != nil {
			m.release(lock)
			return err
		}

		if entry, ok := parentListing[childName]; ok && entry.Type == EntryTypeDirectory {
			entry.Directory.Size = uint64(int64(entry.Directory.Size) + sizeDelta)
			entry.Directory.ModifiedAt = time.Now().UTC()
			parentListing[childName] = entry
		}

		err = m.writeListing(parentPath, parentListing)
		m.release(lock)
		if err != nil {
			return err
		}

		dirComponents = parentComponents
	}
	return nil
}

// resolveDirPath walks dirComponents from the pool's metadata root,
// minting a CID and a Directory entry for any component that doesn't
// exist yet. The result is cached by poolRoot plus its joined virtual
// path, since a single Manager is shared across every pool registered
// on an Instance and two pools may resolve the same virtual path to
// different physical directories.
func (m *Manager) resolveDirPath(ctx context.Context, poolRoot string, dirComponents []string) (string, error) {
	cacheKey := poolRoot + "\x00" + strings.Join(dirComponents, "/")
	if m.dirCache != nil {
		if cached, ok := m.dirCache.Get(cacheKey); ok {
			return cached, nil
		}
	}

	current := filepath.Join(poolRoot, metadataDirName)
	if err := os.MkdirAll(current, 0755); err != nil {
		return "", rfserrors.ClassifyIOError(err, current)
	}

	for _, component := range dirComponents {
		lock, err := filelock.Acquire(ctx, m.log, filepath.Join(current, listingFileName))
		if err != nil {
			return "", err
		}

		listing, err := m.readListing(current)
		if err != nil {
			m.release(lock)
			return "", err
		}

		entry, exists := listing[component]
		var dirInfo DirectoryInfo
		switch {
		case exists && entry.Type == EntryTypeDirectory:
			dirInfo = *entry.Directory
		case exists:
			m.release(lock)
			return "", rfserrors.NewNotADirectoryError(component)
		default:
			newCID, err := mintDirectoryCID(listing)
			if err != nil {
				m.release(lock)
				return "", err
			}
			now := time.Now().UTC()
			dirInfo = DirectoryInfo{CID: newCID, Size: 0, CreatedAt: now, ModifiedAt: now}
			listing[component] = NewDirectoryEntry(dirInfo)
			if err := m.writeListing(current, listing); err != nil {
				m.release(lock)
				return "", err
			}
		}

		m.release(lock)
		current = filepath.Join(current, dirInfo.CID)
		if err := os.MkdirAll(current, 0755); err != nil {
			return "", rfserrors.ClassifyIOError(err, current)
		}
	}

	if m.dirCache != nil {
		m.dirCache.Add(cacheKey, current)
	}
	return current, nil
}

func (m *Manager) readListing(dirPath string) (DirectoryListing, error) {
	listingPath := filepath.Join(dirPath, listingFileName)
	content, err := os.ReadFile(listingPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DirectoryListing{}, nil
		}
		return nil, rfserrors.ClassifyIOError(err, listingPath)
	}

	var listing DirectoryListing
	if err := json.Unmarshal(content, &listing); err != nil {
		return nil, rfserrors.NewSerializationError(err, listingPath)
	}
	return listing, nil
}

func (m *Manager) writeListing(dirPath string, listing DirectoryListing) error {
	content, err := json.MarshalIndent(listing, "", "  ")
	if err != nil {
		return rfserrors.NewSerializationError(err, dirPath)
	}
	listingPath := filepath.Join(dirPath, listingFileName)
	if err := os.WriteFile(listingPath, content, 0644); err != nil {
		return rfserrors.ClassifyIOError(err, listingPath)
	}
	return nil
}

func (m *Manager) writeFileBlockMap(dirPath, cid string, meta FileMetadata) error {
	content, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return rfserrors.NewSerializationError(err, dirPath)
	}
	metaPath := filepath.Join(dirPath, cid+".json")
	if err := os.WriteFile(metaPath, content, 0644); err != nil {
		return rfserrors.ClassifyIOError(err, metaPath)
	}
	return nil
}

// ReadFileBlockMap loads the <cid>.json document for a file entry.
func (m *Manager) ReadFileBlockMap(poolRoot, rfsDirPath, cid string) (FileMetadata, error) {
	components, err := pathutil.ValidateAndSplitPath(rfsDirPath)
	if err != nil {
		return FileMetadata{}, err
	}

	current := filepath.Join(poolRoot, metadataDirName)
	listing, err := m.readListing(current)
	if err != nil {
		return FileMetadata{}, err
	}
	for _, component := range components {
		entry, ok := listing[component]
		if !ok || entry.Type != EntryTypeDirectory {
			return FileMetadata{}, rfserrors.NewNotADirectoryError(component)
		}
		current = filepath.Join(current, entry.Directory.CID)
		listing, err = m.readListing(current)
		if err != nil {
			return FileMetadata{}, err
		}
	}

	metaPath := filepath.Join(current, cid+".json")
	content, err := os.ReadFile(metaPath)
	if err != nil {
		return FileMetadata{}, rfserrors.ClassifyIOError(err, metaPath)
	}

	var meta FileMetadata
	if err := json.Unmarshal(content, &meta); err != nil {
		return FileMetadata{}, rfserrors.NewSerializationError(err, metaPath)
	}
	return meta, nil
}

func (m *Manager) release(lock *filelock.Lock) {
	if err := lock.Release(); err != nil {
		m.log.Warnw("failed releasing lock", "error", err)
	}
}
