package app

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// viperKeyAnnotation links a flag to the configuration key it overrides.
const viperKeyAnnotation = "viper-key"

type (
	flagType interface {
		string | int | bool | time.Duration
	}

	// FlagDef declares a command-line flag that overrides a configuration key.
	FlagDef[T flagType] struct {
		Name         string
		ViperKey     string
		DefaultValue T
		Description  string
	}
)

// DeclareFlags declares flags on cmd. Several commands may declare a flag for the same key;
// only the flags of the command being executed are bound, see BindFlags.
func DeclareFlags[T flagType](cmd *cobra.Command, flags []FlagDef[T]) error {
	for _, flag := range flags {
		if err := declareFlag(cmd.Flags(), flag); err != nil {
			return err
		}
	}
	return nil
}

// declareFlag declares a single flag and records its viper configuration key.
// The type parameter T determines the flag type.
func declareFlag[T flagType](fs *pflag.FlagSet, flag FlagDef[T]) error {
	switch v := any(flag.DefaultValue).(type) {
	case string:
		fs.String(flag.Name, v, flag.Description)
	case int:
		fs.Int(flag.Name, v, flag.Description)
	case bool:
		fs.Bool(flag.Name, v, flag.Description)
	case time.Duration:
		fs.Duration(flag.Name, v, flag.Description)
	}
	return fs.SetAnnotation(flag.Name, viperKeyAnnotation, []string{flag.ViperKey})
}

// MustDeclareFlags panics if a flag cannot be declared. It is meant for package init functions.
func MustDeclareFlags[T flagType](cmd *cobra.Command, flags []FlagDef[T]) {
	if err := DeclareFlags(cmd, flags); err != nil {
		panic(err)
	}
}

// MustDeclarePersistentFlags declares flags inherited by every subcommand of cmd.
func MustDeclarePersistentFlags[T flagType](cmd *cobra.Command, flags []FlagDef[T]) {
	for _, flag := range flags {
		if err := declareFlag(cmd.PersistentFlags(), flag); err != nil {
			panic(err)
		}
	}
}

// BindFlags binds every annotated flag of the executing command to its configuration key.
func BindFlags(v *viper.Viper, cmd *cobra.Command) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[viperKeyAnnotation]
		if err != nil || len(keys) == 0 {
			return
		}
		err = v.BindPFlag(keys[0], f)
	})
	return err
}
