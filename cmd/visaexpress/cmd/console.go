package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.etcd.io/bbolt"

	"github.com/jmcleod/visaexpress/apiclient"
	"github.com/jmcleod/visaexpress/controller"
	"github.com/jmcleod/visaexpress/gate"
	"github.com/jmcleod/visaexpress/internal/util"
	"github.com/jmcleod/visaexpress/notify"
	"github.com/jmcleod/visaexpress/route"
	"github.com/jmcleod/visaexpress/storage"
	bboltstorage "github.com/jmcleod/visaexpress/storage/bbolt"
)

// sessionFile is the bbolt database holding the CLI session record, sealed
// with the key in sessionKeyFile.
const (
	sessionFile    = "session.db"
	sessionKeyFile = "session.key"
	sessionAAD     = "visaexpress:cli:"
)

// sessionLockTimeout bounds the wait for another visaexpress process holding
// the session file.
const sessionLockTimeout = 2 * time.Second

// console is one CLI process's session context: the on-disk session store,
// the backend client and the gate that keeps them in step.
type console struct {
	opts   *options
	out    io.Writer
	db     *bboltstorage.Store
	store  *storage.SealedStore
	client *apiclient.Client
	gate   *gate.Gate
	routes *route.Table
}

func openConsole(opts *options, out io.Writer) (*console, error) {
	cfg := opts.cfg
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := bboltstorage.NewStoreFromFile(filepath.Join(cfg.DataDir, sessionFile), &bbolt.Options{Timeout: sessionLockTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open session storage: %w", err)
	}
	// The bbolt file lock is held from here on, so key creation cannot race.
	key, err := loadSessionKey(cfg.DataDir)
	if err != nil {
		db.Close()
		return nil, err
	}
	store, err := storage.NewSealedStore(db, key, sessionAAD)
	util.WipeBytes(key)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open session storage: %w", err)
	}
	client, err := apiclient.New(cfg.Backend.URL, apiclient.WithTimeout(cfg.Backend.Timeout))
	if err != nil {
		store.Wipe()
		db.Close()
		return nil, fmt.Errorf("configuring backend client: %w", err)
	}
	g := gate.New(store, client,
		gate.WithLoginPath(cfg.Gate.LoginPath),
		gate.WithPolicy(cfg.Policy()),
		gate.WithExemptPaths(cfg.Gate.ExemptPaths...),
		gate.WithLogger(opts.logger),
	)
	g.Initialize()

	return &console{
		opts:   opts,
		out:    out,
		db:     db,
		store:  store,
		client: client,
		gate:   g,
		routes: route.Default(),
	}, nil
}

func (c *console) Close() error {
	c.store.Wipe()
	return c.db.Close()
}

// loadSessionKey reads the session sealing key from dir, creating it on
// first use.
func loadSessionKey(dir string) ([]byte, error) {
	path := filepath.Join(dir, sessionKeyFile)
	key, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if key, err = util.RandomBytes(util.AESKeySize); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, key, 0o600); err != nil {
			return nil, fmt.Errorf("writing session key: %w", err)
		}
		return key, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session key: %w", err)
	}
	if len(key) != util.AESKeySize {
		return nil, fmt.Errorf("session key %s has %d bytes, want %d", path, len(key), util.AESKeySize)
	}
	return key, nil
}

// Notify prints a notification as a colored line.
func (c *console) Notify(n notify.Notification) {
	line := n.Message
	if n.Title != "" {
		line = n.Title + ": " + n.Message
	}
	switch n.Level {
	case notify.LevelError:
		color.New(color.FgRed).Fprintln(c.out, "✗ "+line)
	case notify.LevelSuccess:
		color.New(color.FgGreen).Fprintln(c.out, "✓ "+line)
	default:
		color.New(color.FgCyan).Fprintln(c.out, line)
	}
}

func (c *console) listing(opts ...controller.ListingOption) *controller.Listing {
	base := []controller.ListingOption{
		controller.WithActivationNotice(c.opts.cfg.Notifications.OnLoad),
		controller.WithListingLogger(c.opts.logger),
	}
	return controller.NewListing(c.client, c, append(base, opts...)...)
}

// errReported is returned after the failure was already shown to the user
// as a notification.
var errReported = errors.New("failure already reported")

// ErrRedirected is returned when the gate sends a navigation to the login
// path.
type ErrRedirected struct {
	Target   string
	Location string
}

func (e *ErrRedirected) Error() string {
	return fmt.Sprintf("not signed in: %s redirected to %s (run `visaexpress login`)", e.Target, e.Location)
}

// navigate performs one gated navigation to path and renders its view.
func (c *console) navigate(ctx context.Context, path string) error {
	d := c.gate.Check(gate.Intent{TargetPath: path})
	if d.IsRedirect() {
		return &ErrRedirected{Target: path, Location: d.Location}
	}

	m, ok := c.routes.Match(path)
	if !ok {
		color.New(color.FgYellow).Fprintf(c.out, "Not found: %s\n", path)
		return nil
	}

	switch m.Route.Controller {
	case route.CtrlMain:
		l := c.listing()
		if err := l.Activate(ctx); err != nil {
			return errReported
		}
		c.printRecords(l)
	case route.CtrlDash:
		l := c.listing()
		if err := l.Activate(ctx); err != nil {
			return errReported
		}
		fmt.Fprintf(c.out, "%s registered users\n", color.New(color.Bold).Sprint(len(l.Records())))
	case route.CtrlEditDash:
		fmt.Fprintln(c.out, "Add a user with `visaexpress users add`.")
	case route.CtrlLog:
		if err := controller.NewLogout(c.store, c.client).Run(); err != nil {
			return err
		}
		c.gate.Refresh()
		fmt.Fprintln(c.out, m.Route.Template)
	case route.CtrlResult:
		id := m.Param("id")
		l := c.listing()
		if err := l.Activate(ctx); err != nil {
			return errReported
		}
		rec, found := l.Find(id)
		if !found {
			color.New(color.FgYellow).Fprintf(c.out, "No user with id %s\n", id)
			return nil
		}
		printRecord(c.out, rec)
	default:
		fmt.Fprintf(c.out, "%s\n", strings.ToUpper(m.Route.View[:1])+m.Route.View[1:])
	}
	return nil
}

func (c *console) printRecords(l *controller.Listing) {
	recs := l.Records()
	if recs == nil {
		fmt.Fprintln(c.out, string(l.Result()))
		return
	}
	bold := color.New(color.Bold)
	bold.Fprintf(c.out, "%-24s %s\n", "ID", "NAME")
	for _, r := range recs {
		fmt.Fprintf(c.out, "%-24s %s\n", r.ID(), r.String())
	}
}

func printRecord(w io.Writer, r controller.Record) {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	key := color.New(color.FgHiBlack)
	for _, k := range keys {
		key.Fprintf(w, "%-12s ", k)
		fmt.Fprintln(w, r[k])
	}
}
