package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jvmcore/gojvm/pkg/classloader"
	"github.com/jvmcore/gojvm/pkg/config"
)

// findJmodPath locates the bootstrap class image the same way the
// teacher's cmd/gojvm/main.go does: an explicit override, then the
// JAVA_BASE_JMOD environment variable, then JAVA_HOME, then a
// best-effort glob of common install locations.
func findJmodPath(override string) string {
	if override != "" {
		return override
	}
	if env := os.Getenv("JAVA_BASE_JMOD"); env != "" {
		return env
	}
	if javaHome := os.Getenv("JAVA_HOME"); javaHome != "" {
		p := filepath.Join(javaHome, "jmods", "java.base.jmod")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	matches, _ := filepath.Glob("/usr/lib/jvm/java-*-openjdk-*/jmods/java.base.jmod")
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}

func main() {
	var (
		jmodPath  string
		classpath []string
		props     []string
		verbose   bool
	)

	root := &cobra.Command{
		Use:   "gojvm <class-or-jar> [args...]",
		Short: "Run a compiled Java class or jar",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := zap.NewNop()
			if verbose {
				var err error
				log, err = zap.NewDevelopment()
				if err != nil {
					return fmt.Errorf("building logger: %w", err)
				}
			}

			target := args[0]
			runArgs := args[1:]

			mainClass, entryClasspath, err := resolveEntry(target)
			if err != nil {
				return err
			}

			opts := config.Options{
				JmodPath:   findJmodPath(jmodPath),
				Classpath:  append(entryClasspath, classpath...),
				Properties: parseProperties(props),
				Log:        log,
			}
			if opts.JmodPath == "" {
				return fmt.Errorf("could not find java.base.jmod: set --jmod, JAVA_BASE_JMOD, or JAVA_HOME")
			}

			rt, err := config.New(opts)
			if err != nil {
				return fmt.Errorf("building runtime: %w", err)
			}

			ctx := context.Background()
			if err := rt.VM.Execute(ctx, mainClass, runArgs); err != nil {
				return fmt.Errorf("executing %s: %w", mainClass, err)
			}
			return rt.Group.Wait()
		},
	}

	root.Flags().StringVar(&jmodPath, "jmod", "", "path to java.base.jmod (overrides JAVA_HOME discovery)")
	root.Flags().StringSliceVarP(&classpath, "classpath", "c", nil, "additional classpath entries (directories or jars)")
	root.Flags().StringArrayVarP(&props, "define", "D", nil, "set a system property, key=value")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable structured diagnostic logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveEntry figures out the main class to run and the classpath entry
// it lives on: a jar uses its manifest's Main-Class (§8 scenario 6), a
// bare .class file uses its containing directory and stem, and anything
// else is taken as an already-qualified internal class name resolved
// against whatever --classpath entries the caller supplied.
func resolveEntry(target string) (mainClass string, classpath []string, err error) {
	switch {
	case strings.HasSuffix(target, ".jar"):
		name, err := classloader.ManifestMainClass(target)
		if err != nil {
			return "", nil, err
		}
		return name, []string{target}, nil
	case strings.HasSuffix(target, ".class"):
		dir := filepath.Dir(target)
		name := strings.TrimSuffix(filepath.Base(target), ".class")
		return name, []string{dir}, nil
	default:
		return strings.ReplaceAll(target, ".", "/"), nil, nil
	}
}

func parseProperties(entries []string) map[string]string {
	props := make(map[string]string, len(entries))
	for _, e := range entries {
		key, value, ok := strings.Cut(e, "=")
		if !ok {
			props[e] = ""
			continue
		}
		props[key] = value
	}
	return props
}
