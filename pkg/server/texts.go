package server

import (
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// defaultWelcome is the built-in splash screen, shown on connect and by
// the help command.
const defaultWelcome = "Welcome to EmberMUD. Please choose an option:\r\n" +
	"  help     - Display this menu again\r\n" +
	"  quit     - Disconnect\r\n" +
	"  register - Register as a new player (register <name> <password>)\r\n" +
	"  login    - Log in (login <name> <password>)\r\n" +
	"  stats    - Display server status and information\r\n" +
	"  who      - List players logged in\r\n" +
	"\r\n" +
	"Or enter your username and password to log in.\r\n" +
	"\r\n" +
	"Your choice:"

const defaultQuit = "Thanks for playing!"

// textFile maps an override filename to its slot.
var textFiles = map[string]int{
	"welcome.txt": slotWelcome,
	"motd.txt":    slotMotd,
	"quit.txt":    slotQuit,
}

const (
	slotWelcome = iota
	slotMotd
	slotQuit
	slotCount
)

// Texts caches the text served at connection lifecycle points (welcome
// screen, MOTD, quit message). Files in the text directory override the
// built-ins and are reloaded when they change on disk.
type Texts struct {
	mu    sync.RWMutex
	dir   string
	slots [slotCount]string
}

// NewTexts loads overrides from dir (which may be empty) and starts a
// watcher for live reloads.
func NewTexts(dir string) *Texts {
	t := &Texts{dir: dir}
	if dir != "" {
		t.loadAll()
		t.watch()
	}
	return t
}

// Welcome returns the splash screen text.
func (t *Texts) Welcome() string { return t.get(slotWelcome, defaultWelcome) }

// Motd returns the post-login message of the day; empty when unset.
func (t *Texts) Motd() string { return t.get(slotMotd, "") }

// Quit returns the farewell text.
func (t *Texts) Quit() string { return t.get(slotQuit, defaultQuit) }

func (t *Texts) get(slot int, fallback string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.slots[slot] != "" {
		return t.slots[slot]
	}
	return fallback
}

func (t *Texts) loadAll() {
	for name := range textFiles {
		t.loadFile(name)
	}
}

func (t *Texts) loadFile(name string) {
	slot, ok := textFiles[name]
	if !ok {
		return
	}
	data, err := os.ReadFile(filepath.Join(t.dir, name))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("WARNING: text file %s: %v", name, err)
		}
		return
	}
	t.mu.Lock()
	t.slots[slot] = string(data)
	t.mu.Unlock()
	log.Printf("Loaded text file %s (%d bytes)", name, len(data))
}

// watch reloads tracked files when they are written or created.
func (t *Texts) watch() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("WARNING: could not start text file watcher: %v", err)
		return
	}
	if err := watcher.Add(t.dir); err != nil {
		log.Printf("WARNING: could not watch %s: %v", t.dir, err)
		watcher.Close()
		return
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				t.loadFile(filepath.Base(event.Name))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("WARNING: text file watcher: %v", err)
			}
		}
	}()
}
