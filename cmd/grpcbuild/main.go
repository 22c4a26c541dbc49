// Command grpcbuild compiles a directory of .proto files and lays the
// generated sources out in a namespace-mirroring output directory with
// a deterministic root index.
package main

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/grpcbuild/grpcbuild"
	"github.com/grpcbuild/grpcbuild/compiler"
	"github.com/grpcbuild/grpcbuild/gen"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "grpcbuild",
		Short:        "Generate namespaced protobuf sources from a directory of .proto files",
		SilenceUsage: true,
	}
	cmd.AddCommand(generateCmd())
	return cmd
}

func generateCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Compile protos and write the generated sources and root index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(v, cfgFile); err != nil {
				return err
			}

			logger, err := newLogger(v.GetBool("verbose"))
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			b := grpcbuild.Builder{
				ExternPaths:    v.GetStringSlice("extern"),
				WellKnownTypes: v.GetBool("well-known-types"),
				RootFile:       v.GetString("root-file"),
				RootPackage:    v.GetString("root-package"),
				Force:          v.GetBool("force"),
				Logger:         logger,
			}
			if v.GetBool("use-protoc") {
				b.Compiler = &compiler.Protoc{Path: v.GetString("protoc")}
			}
			if plugin := v.GetString("plugin"); plugin != "" {
				b.Generator = &gen.Plugin{
					Path:      plugin,
					Parameter: v.GetString("plugin-opt"),
				}
			}
			return b.Build(cmd.Context(), v.GetString("in"), v.GetString("out"))
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default .grpcbuild.yaml in the working directory)")
	cmd.Flags().String("in", "protos", "directory containing the .proto sources")
	cmd.Flags().String("out", "gen", "output directory for the generated sources")
	cmd.Flags().Bool("force", false, "allow writing into an existing output directory")
	cmd.Flags().StringSlice("extern", nil, "dotted type name or namespace prefix supplied externally (repeatable)")
	cmd.Flags().Bool("well-known-types", true, "treat the google.protobuf types as externally supplied")
	cmd.Flags().String("root-file", "", "name of the root index file (default protos.pb.go)")
	cmd.Flags().String("root-package", "", "Go package clause of the root index file (default protos)")
	cmd.Flags().String("plugin", "", "protoc-style plugin executable generating the per-package sources")
	cmd.Flags().String("plugin-opt", "", "parameter passed through to the plugin")
	cmd.Flags().Bool("use-protoc", false, "shell out to protoc instead of compiling in process")
	cmd.Flags().String("protoc", "", "protoc executable to use with --use-protoc")
	cmd.Flags().Bool("verbose", false, "enable debug logging")
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		panic(err)
	}
	return cmd
}

// loadConfig layers an optional config file and GRPCBUILD_* environment
// variables beneath the flag values already bound to v.
func loadConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".grpcbuild")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("GRPCBUILD")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "reading config")
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
