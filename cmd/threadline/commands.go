package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/google/subcommands"

	"github.com/shleen/threadline/internal/app"
	"github.com/shleen/threadline/internal/backend"
	"github.com/shleen/threadline/internal/validate"
	"github.com/shleen/threadline/internal/wardrobe"
)

func newCommander(fs *flag.FlagSet, stdout, stderr io.Writer) *subcommands.Commander {
	cmdr := subcommands.NewCommander(fs, "threadline")
	cmdr.Output = stdout
	cmdr.Error = stderr
	cmdr.Register(cmdr.HelpCommand(), "help")
	cmdr.Register(cmdr.FlagsCommand(), "help")
	cmdr.Register(cmdr.CommandsCommand(), "help")
	cmdr.Register(&tuiCmd{}, "")
	cmdr.Register(&addCmd{out: stdout, errOut: stderr}, "closet")
	cmdr.Register(&rmbgCmd{out: stdout, errOut: stderr}, "closet")
	cmdr.Register(&colorsCmd{out: stdout, errOut: stderr}, "closet")
	cmdr.Register(&categoriesCmd{out: stdout, errOut: stderr}, "closet")
	return cmdr
}

// commonFlags are accepted by every subcommand.
type commonFlags struct {
	configPath string
	prefsPath  string
	username   string
	logLevel   string
}

func (c *commonFlags) setFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "config file (default ~/.config/threadline/config.toml)")
	f.StringVar(&c.prefsPath, "prefs", "", "prefs file (default ~/.config/threadline/prefs.toml)")
	f.StringVar(&c.username, "user", "", "username (overrides config and prefs)")
	f.StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error")
}

func (c *commonFlags) options() app.Options {
	return app.Options{
		ConfigPath: c.configPath,
		PrefsPath:  c.prefsPath,
		Username:   c.username,
		LogLevel:   c.logLevel,
	}
}

// setup loads the environment for a one-shot command, which needs a
// valid username.
func (c *commonFlags) setup() (*app.Env, error) {
	env, err := app.Setup(c.options())
	if err != nil {
		return nil, err
	}
	if err := validate.Username(env.Username); err != nil {
		_ = env.Close()
		return nil, fmt.Errorf("no usable username (set -user or username in config): %w", err)
	}
	return env, nil
}

func readImage(path string) (backend.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return backend.Image{}, fmt.Errorf("read image: %w", err)
	}
	img := backend.Image{Filename: filepath.Base(path), Data: data}
	if err := backend.ValidateImage(img); err != nil {
		return backend.Image{}, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func formatRGB(c backend.RGB) string {
	return fmt.Sprintf("#%02x%02x%02x rgb(%d, %d, %d)", c.R, c.G, c.B, c.R, c.G, c.B)
}

func fail(w io.Writer, name string, err error) subcommands.ExitStatus {
	fmt.Fprintf(w, "threadline %s: %v\n", name, err)
	return subcommands.ExitFailure
}

// tui

type tuiCmd struct {
	commonFlags
}

func (*tuiCmd) Name() string     { return "tui" }
func (*tuiCmd) Synopsis() string { return "open the terminal UI (default)" }
func (*tuiCmd) Usage() string {
	return "tui [-config path] [-prefs path] [-user name]:\n  Browse recommendations, your closet and the feed.\n"
}
func (c *tuiCmd) SetFlags(f *flag.FlagSet) { c.commonFlags.setFlags(f) }

func (c *tuiCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	if err := app.Run(ctx, c.options()); err != nil {
		return fail(os.Stderr, c.Name(), err)
	}
	return subcommands.ExitSuccess
}

// add

type addCmd struct {
	commonFlags
	category   string
	subtype    string
	fit        string
	occasion   string
	precip     string
	tags       string
	winter     bool
	layerable  bool
	removeBg   bool
	skipColors bool
	noProgress bool

	out, errOut io.Writer
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add a clothing item from an image" }
func (*addCmd) Usage() string {
	return `add -type TOP|BOTTOM|OUTERWEAR|DRESS|SHOES -fit FIT -occasion OCCASION [flags] <image>:
  Upload a png or jpeg photo as a new closet item. Colors are extracted by
  the server unless -no-colors is given.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	c.commonFlags.setFlags(f)
	f.StringVar(&c.category, "type", "", "category: TOP, BOTTOM, OUTERWEAR, DRESS or SHOES")
	f.StringVar(&c.subtype, "subtype", "", "subtype, e.g. T_SHIRT")
	f.StringVar(&c.fit, "fit", "", "fit, e.g. RELAXED")
	f.StringVar(&c.occasion, "occasion", "", "occasion, e.g. CASUAL")
	f.StringVar(&c.precip, "precip", "", "precipitation suitability, e.g. RAIN")
	f.StringVar(&c.tags, "tags", "", "comma separated tags")
	f.BoolVar(&c.winter, "winter", false, "suitable for winter")
	f.BoolVar(&c.layerable, "layerable", false, "can be layered")
	f.BoolVar(&c.removeBg, "rmbg", false, "remove the background before upload")
	f.BoolVar(&c.skipColors, "no-colors", false, "skip color extraction")
	f.BoolVar(&c.noProgress, "no-progress", false, "hide the upload progress bar")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	category, err := wardrobe.ParseCategory(c.category)
	if err != nil {
		return fail(c.errOut, c.Name(), err)
	}
	img, err := readImage(f.Arg(0))
	if err != nil {
		return fail(c.errOut, c.Name(), err)
	}

	env, err := c.setup()
	if err != nil {
		return fail(c.errOut, c.Name(), err)
	}
	defer env.Close()
	client, user := env.Client, env.Username

	form, err := client.FetchCategories(ctx)
	if err != nil {
		return fail(c.errOut, c.Name(), err)
	}
	if err := c.checkChoices(form, category); err != nil {
		return fail(c.errOut, c.Name(), err)
	}

	if c.removeBg {
		data, err := client.RemoveBackground(ctx, user, img)
		if err != nil {
			return fail(c.errOut, c.Name(), err)
		}
		img = backend.Image{Filename: pngName(img.Filename), Data: data}
		fmt.Fprintln(c.out, "background removed")
	}

	item := backend.NewClothing{
		Username:  user,
		Category:  category,
		Subtype:   strings.TrimSpace(c.subtype),
		Fit:       strings.TrimSpace(c.fit),
		Occasion:  strings.TrimSpace(c.occasion),
		Winter:    c.winter,
		Precip:    strings.TrimSpace(c.precip),
		Layerable: c.layerable,
		Tags:      splitTags(c.tags),
		Image:     img,
	}
	if !c.skipColors {
		colors, err := client.ProcessImage(ctx, user, img)
		if err != nil {
			return fail(c.errOut, c.Name(), err)
		}
		item.Primary = &colors.Primary
		item.Secondary = colors.Secondary
		fmt.Fprintf(c.out, "primary color   %s\n", formatRGB(colors.Primary))
	}

	var opts []backend.UploadOption
	var bar *pb.ProgressBar
	if !c.noProgress {
		opts = append(opts, backend.WithProgress(func(r io.Reader, size int64) io.Reader {
			bar = pb.New64(size)
			bar.Set(pb.Bytes, true)
			bar.Set("prefix", truncateName(img.Filename, 30)+" ")
			bar.SetWriter(c.errOut)
			bar.Start()
			return bar.NewProxyReader(r)
		}))
	}
	id, err := client.CreateClothing(ctx, item, opts...)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return fail(c.errOut, c.Name(), err)
	}
	env.Logger.Info("clothing created", "id", id, "type", category, "user", user)
	if id > 0 {
		fmt.Fprintf(c.out, "added %s #%d\n", strings.ToLower(category.Singular()), id)
	} else {
		fmt.Fprintf(c.out, "added %s\n", strings.ToLower(category.Singular()))
	}
	return subcommands.ExitSuccess
}

// checkChoices matches the descriptive flags against the server's form
// options, rewriting each to the server's spelling. A list the server
// leaves empty is not checked.
func (c *addCmd) checkChoices(form wardrobe.FormOptions, category wardrobe.Category) error {
	fields := []struct {
		flag    string
		value   *string
		choices []string
	}{
		{"subtype", &c.subtype, form.SubtypesFor(category)},
		{"fit", &c.fit, form.Fits},
		{"occasion", &c.occasion, form.Occasion},
		{"precip", &c.precip, form.Precip},
	}
	for _, f := range fields {
		v := strings.TrimSpace(*f.value)
		if v == "" || len(f.choices) == 0 {
			continue
		}
		match, ok := lookupChoice(f.choices, v)
		if !ok {
			return fmt.Errorf("-%s %q is not one of %s", f.flag, v, strings.Join(f.choices, ", "))
		}
		*f.value = match
	}
	return nil
}

func lookupChoice(choices []string, v string) (string, bool) {
	for _, c := range choices {
		if strings.EqualFold(c, v) {
			return c, true
		}
	}
	return "", false
}

func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func pngName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".png"
}

func truncateName(name string, limit int) string {
	r := []rune(name)
	if len(r) <= limit {
		return name
	}
	return string(r[:limit-1]) + "…"
}

// rmbg

type rmbgCmd struct {
	commonFlags
	output string

	out, errOut io.Writer
}

func (*rmbgCmd) Name() string     { return "rmbg" }
func (*rmbgCmd) Synopsis() string { return "remove the background from an image" }
func (*rmbgCmd) Usage() string {
	return "rmbg [-o output.png] <image>:\n  Write a copy of the image with its background removed.\n"
}

func (c *rmbgCmd) SetFlags(f *flag.FlagSet) {
	c.commonFlags.setFlags(f)
	f.StringVar(&c.output, "o", "", "output file (default <image>_nobg.png)")
}

func (c *rmbgCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	in := f.Arg(0)
	img, err := readImage(in)
	if err != nil {
		return fail(c.errOut, c.Name(), err)
	}
	env, err := c.setup()
	if err != nil {
		return fail(c.errOut, c.Name(), err)
	}
	defer env.Close()

	data, err := env.Client.RemoveBackground(ctx, env.Username, img)
	if err != nil {
		return fail(c.errOut, c.Name(), err)
	}
	out := c.output
	if out == "" {
		out = strings.TrimSuffix(in, filepath.Ext(in)) + "_nobg.png"
	}
	if _, err := os.Stat(out); err == nil {
		return fail(c.errOut, c.Name(), fmt.Errorf("%s already exists", out))
	} else if !errors.Is(err, os.ErrNotExist) {
		return fail(c.errOut, c.Name(), err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fail(c.errOut, c.Name(), err)
	}
	fmt.Fprintf(c.out, "wrote %s (%d bytes)\n", out, len(data))
	return subcommands.ExitSuccess
}

// colors

type colorsCmd struct {
	commonFlags

	out, errOut io.Writer
}

func (*colorsCmd) Name() string     { return "colors" }
func (*colorsCmd) Synopsis() string { return "print the dominant colors of an image" }
func (*colorsCmd) Usage() string {
	return "colors <image>:\n  Ask the server for the primary and secondary colors of a garment photo.\n"
}
func (c *colorsCmd) SetFlags(f *flag.FlagSet) { c.commonFlags.setFlags(f) }

func (c *colorsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	img, err := readImage(f.Arg(0))
	if err != nil {
		return fail(c.errOut, c.Name(), err)
	}
	env, err := c.setup()
	if err != nil {
		return fail(c.errOut, c.Name(), err)
	}
	defer env.Close()

	colors, err := env.Client.ProcessImage(ctx, env.Username, img)
	if err != nil {
		return fail(c.errOut, c.Name(), err)
	}
	fmt.Fprintf(c.out, "primary   %s\n", formatRGB(colors.Primary))
	if colors.Secondary != nil {
		fmt.Fprintf(c.out, "secondary %s\n", formatRGB(*colors.Secondary))
	}
	return subcommands.ExitSuccess
}

// categories

type categoriesCmd struct {
	commonFlags

	out, errOut io.Writer
}

func (*categoriesCmd) Name() string     { return "categories" }
func (*categoriesCmd) Synopsis() string { return "list the choices accepted by add" }
func (*categoriesCmd) Usage() string {
	return "categories:\n  Print the subtypes, fits, occasions and precipitation values the server accepts.\n"
}
func (c *categoriesCmd) SetFlags(f *flag.FlagSet) { c.commonFlags.setFlags(f) }

func (c *categoriesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	env, err := app.Setup(c.options())
	if err != nil {
		return fail(c.errOut, c.Name(), err)
	}
	defer env.Close()

	form, err := env.Client.FetchCategories(ctx)
	if err != nil {
		return fail(c.errOut, c.Name(), err)
	}
	for _, cat := range wardrobe.Categories {
		if subtypes := form.SubtypesFor(cat); len(subtypes) > 0 {
			fmt.Fprintf(c.out, "%-10s %s\n", strings.ToLower(cat.Singular()), strings.Join(subtypes, ", "))
		}
	}
	for _, row := range []struct {
		label   string
		choices []string
	}{
		{"fit", form.Fits},
		{"occasion", form.Occasion},
		{"precip", form.Precip},
		{"weather", form.Weather},
	} {
		if len(row.choices) > 0 {
			fmt.Fprintf(c.out, "%-10s %s\n", row.label, strings.Join(row.choices, ", "))
		}
	}
	return subcommands.ExitSuccess
}
