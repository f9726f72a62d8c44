// Package commanddb implements the shell's read-only command-property
// table: a map from command name to a map of property name to string value,
// loaded from the file named by $IVISH_CMD_DB and optionally hot-reloaded
// when the host rewrites that file.
package commanddb

import (
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Recognised property names.
const (
	PropIntAction = "intaction"
	PropTermMode  = "termmode"
)

// Recognised intaction values.
const (
	ActionThreadKill    = "thread_kill"
	ActionThreadCancel  = "thread_cancel"
	ActionEndOfFile     = "end_of_file"
	ActionHandlerFunc   = "handler_func"
	ActionHandlerFuncNL = "handler_func_nl"
)

// Recognised termmode values.
const (
	TermModeLine = "line"
	TermModeRaw  = "raw"
)

// DB is a read-only, concurrency-safe command property table.
type DB struct {
	mu      sync.RWMutex
	entries map[string]map[string]string

	log *logrus.Entry

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Load reads the YAML dictionary-of-dictionaries at path. Per the shell
// design, failure to read is non-fatal: a DB with no entries is returned
// along with the error for logging, never a nil DB.
func Load(path string, log *logrus.Entry) (*DB, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	db := &DB{entries: map[string]map[string]string{}, log: log.WithField("component", "commanddb")}
	if path == "" {
		return db, nil
	}
	if err := db.reload(path); err != nil {
		db.log.WithError(err).WithField("path", path).Warn("command database: load failed, continuing with no entries")
		return db, err
	}
	return db, nil
}

func (db *DB) reload(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var parsed map[string]map[string]string
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return err
	}
	if parsed == nil {
		parsed = map[string]map[string]string{}
	}
	db.mu.Lock()
	db.entries = parsed
	db.mu.Unlock()
	return nil
}

// Watch starts hot-reloading the database whenever path is written, the way
// tmc/covutil's covtree-web watches its coverage directory. The returned
// stop function ends the watch; it is safe to call more than once.
func (db *DB) Watch(path string) (stop func(), err error) {
	if path == "" {
		return func() {}, nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return func() {}, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return func() {}, err
	}
	db.watcher = w
	db.done = make(chan struct{})

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if err := db.reload(path); err != nil {
						db.log.WithError(err).Warn("command database: reload failed")
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				db.log.WithError(err).Warn("command database: watch error")
			case <-db.done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(db.done)
			w.Close()
		})
	}, nil
}

// Property returns the named property for command, if the command and
// property are both known.
func (db *DB) Property(command, property string) (string, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	props, ok := db.entries[command]
	if !ok {
		return "", false
	}
	v, ok := props[property]
	return v, ok
}

// IntAction returns command's configured intaction, defaulting to "" (the
// caller falls back to the shell's installed SIGINT handler, then thread
// cancellation, per the interrupt-dispatch design).
func (db *DB) IntAction(command string) string {
	v, _ := db.Property(command, PropIntAction)
	return v
}

// TermMode returns command's configured termmode, defaulting to
// TermModeLine.
func (db *DB) TermMode(command string) string {
	v, ok := db.Property(command, PropTermMode)
	if !ok {
		return TermModeLine
	}
	return v
}
