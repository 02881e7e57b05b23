package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/axesdev/axes/internal/identity"
)

var (
	initParent          string
	initPath            string
	registerParent      string
	unregisterRecursive bool
	unregisterReparent  string
)

var initCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "scaffold a new project directory and register it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		path := initPath
		if path == "" {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			path = wd
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		parent := identity.Root
		if initParent != "" {
			res, err := resolve(store, initParent)
			if err != nil {
				return err
			}
			parent = res.UUID
		}

		id, err := store.CreateProject(name, parent, abs)
		if err != nil {
			return err
		}
		if err := identity.WriteLocalRef(abs, identity.LocalRef{SelfUUID: id, ParentUUID: parent, Name: name}); err != nil {
			return err
		}

		configPath := filepath.Join(abs, "axes.yaml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			if err := os.WriteFile(configPath, []byte("scripts: {}\n"), 0o644); err != nil {
				return err
			}
		}

		fmt.Printf("initialized %q (%s) at %s\n", name, id, abs)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <name> <path>",
	Short: "register an existing directory as a project, without scaffolding it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, path := args[0], args[1]
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		parent := identity.Root
		if registerParent != "" {
			res, err := resolve(store, registerParent)
			if err != nil {
				return err
			}
			parent = res.UUID
		}
		id, err := store.CreateProject(name, parent, abs)
		if err != nil {
			return err
		}
		fmt.Printf("registered %q (%s) at %s\n", name, id, abs)
		return nil
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <context> <new-name>",
	Short: "change a project's simple name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		res, err := resolve(store, args[0])
		if err != nil {
			return err
		}
		if err := store.Rename(res.UUID, args[1]); err != nil {
			return err
		}
		entry, err := store.Lookup(res.UUID)
		if err != nil {
			return err
		}
		if entry.Path != "" {
			if err := identity.WriteLocalRef(entry.Path, identity.LocalRef{SelfUUID: res.UUID, ParentUUID: entry.Parent, Name: entry.Name}); err != nil {
				return err
			}
		}
		return nil
	},
}

var linkCmd = &cobra.Command{
	Use:   "link <context> <new-parent-context>",
	Short: "re-parent a project under a different project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		res, err := resolve(store, args[0])
		if err != nil {
			return err
		}
		newParent, err := resolve(store, args[1])
		if err != nil {
			return err
		}
		if err := store.Link(res.UUID, newParent.UUID); err != nil {
			return err
		}
		entry, err := store.Lookup(res.UUID)
		if err != nil {
			return err
		}
		if entry.Path != "" {
			if err := identity.WriteLocalRef(entry.Path, identity.LocalRef{SelfUUID: res.UUID, ParentUUID: newParent.UUID, Name: entry.Name}); err != nil {
				return err
			}
		}
		return nil
	},
}

var unregisterCmd = &cobra.Command{
	Use:   "unregister <context>",
	Short: "remove a project from the identity store without touching its directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		res, err := resolve(store, args[0])
		if err != nil {
			return err
		}
		reparentTo := identity.Root
		if unregisterReparent != "" {
			target, err := resolve(store, unregisterReparent)
			if err != nil {
				return err
			}
			reparentTo = target.UUID
		}
		return store.Unregister(res.UUID, unregisterRecursive, reparentTo)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <context>",
	Short: "delete a project's directory and unregister it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		res, err := resolve(store, args[0])
		if err != nil {
			return err
		}
		entry, err := store.Lookup(res.UUID)
		if err != nil {
			return err
		}
		if entry.Path != "" {
			_ = identity.DeleteLocalRef(entry.Path)
		}
		return store.DeleteDirectoryAndUnregister(res.UUID)
	},
}

func init() {
	initCmd.Flags().StringVar(&initParent, "parent", "", "parent context (default: root)")
	initCmd.Flags().StringVar(&initPath, "path", "", "directory to initialize (default: current directory)")

	registerCmd.Flags().StringVar(&registerParent, "parent", "", "parent context (default: root)")

	unregisterCmd.Flags().BoolVar(&unregisterRecursive, "recursive", false, "remove descendants instead of re-parenting them")
	unregisterCmd.Flags().StringVar(&unregisterReparent, "reparent-to", "", "context to re-parent direct children to (default: root)")
}
