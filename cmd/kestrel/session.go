package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kestrel/internal/config"
	"kestrel/internal/interp"
	"kestrel/internal/observ"
	"kestrel/internal/trace"
	"kestrel/internal/ui"
)

// session is one runtime plus the modules requested for the command.
type session struct {
	rt      *interp.Runtime
	file    *config.File
	timer   *observ.Timer
	targets []ui.Target
	pathSrc string
}

func loadConfigFile(cmd *cobra.Command) (*config.File, bool, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, false, err
	}
	if path != "" {
		f, err := config.Load(path)
		if err != nil {
			return nil, true, err
		}
		return f, true, nil
	}
	return config.Discover(".")
}

// parseImport splits "module[@namespace]".
func parseImport(arg, defaultNS string) (ui.Target, error) {
	module, ns, found := strings.Cut(arg, "@")
	module = strings.TrimSpace(module)
	if module == "" {
		return ui.Target{}, fmt.Errorf("invalid --import %q: missing module name", arg)
	}
	if !found || strings.TrimSpace(ns) == "" {
		ns = defaultNS
	}
	return ui.Target{Module: module, Namespace: strings.TrimSpace(ns)}, nil
}

// newSession builds a runtime from flags and kestrel.toml and imports the
// configured preloads followed by every --import, in that order.
func newSession(cmd *cobra.Command, extra ...string) (*session, error) {
	file, _, err := loadConfigFile(cmd)
	if err != nil {
		return nil, err
	}
	flags := cmd.Root().PersistentFlags()
	modulePath, err := flags.GetString("module-path")
	if err != nil {
		return nil, err
	}
	imports, err := flags.GetStringArray("import")
	if err != nil {
		return nil, err
	}
	timings, err := flags.GetBool("timings")
	if err != nil {
		return nil, err
	}
	uiValue, err := flags.GetString("ui")
	if err != nil {
		return nil, err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return nil, err
	}

	s := &session{file: file}
	if timings {
		s.timer = observ.NewTimer()
	}
	for _, p := range file.Preloads() {
		s.targets = append(s.targets, ui.Target{Module: p.Name, Namespace: p.Namespace})
	}
	for _, arg := range append(imports, extra...) {
		t, err := parseImport(arg, file.DefaultNamespace())
		if err != nil {
			return nil, err
		}
		s.targets = append(s.targets, t)
	}

	path, src, configured := config.ResolveSearchPath(modulePath, file)
	s.pathSrc = src
	opts := []interp.Option{
		interp.WithTracer(trace.FromContext(cmd.Context())),
		interp.WithTimer(s.timer),
	}
	if configured {
		opts = append(opts, interp.WithSearchPath(path))
	}

	if len(s.targets) > 0 && shouldUseTUI(mode) {
		err = s.preloadWithUI(cmd.Context(), opts)
	} else {
		s.rt, err = interp.New(opts...)
		if err == nil {
			err = s.preload(cmd.Context())
		}
	}
	if err != nil {
		if s.rt != nil {
			_ = s.rt.Close(cmd.Context())
		}
		return nil, err
	}
	return s, nil
}

func (s *session) preload(ctx context.Context) error {
	for _, t := range s.targets {
		if err := s.rt.Import(ctx, t.Module, t.Namespace); err != nil {
			return err
		}
	}
	return nil
}

// close unloads every module and prints timings when requested.
func (s *session) close(cmd *cobra.Command) error {
	err := s.rt.Close(cmd.Context())
	if s.timer != nil {
		fmt.Fprint(cmd.ErrOrStderr(), s.timer.Summary())
	}
	return err
}
