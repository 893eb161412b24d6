package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	fcolor "github.com/fatih/color"
	"github.com/spf13/afero"
)

// IndentSize is the number of spaces per level of depth.
const IndentSize = 4

// Tree implements `pipegate tree [DIR]`: the absolute path of DIR (default the
// working directory) followed by every entry beneath it, depth first, indented
// by depth. Hidden entries are skipped.
func Tree(args []string, fsys afero.Fs, stdout, stderr io.Writer) int {
	cmd := &SimpleCommand{
		Use:   "tree [DIR]",
		Short: "List a directory and its subdirectories recursively.",
	}

	var color ColorPrinter
	color.Init(cmd.Flags())

	return cmd.Run(args, stdout, stderr, func() int {
		root := "."
		switch dirs := cmd.Flags().Args(); len(dirs) {
		case 0:
		case 1:
			root = dirs[0]
		default:
			fmt.Fprintln(stderr, "tree: too many arguments")
			return 1
		}

		root, err := filepath.Abs(root)
		if err != nil {
			fmt.Fprintf(stderr, "tree: %v\n", err)
			return 1
		}

		if err := WriteTree(fsys, stdout, root, &color); err != nil {
			fmt.Fprintf(stderr, "tree: %v\n", err)
			return 1
		}
		return 0
	})
}

// WriteTree prints root and then walks it. Paths that can't be listed, because
// they're files or unreadable, end the recursion quietly. Symlinks aren't
// followed.
func WriteTree(fsys afero.Fs, w io.Writer, root string, color *ColorPrinter) error {
	if err := Println(w, root); err != nil {
		return err
	}
	return writeEntries(fsys, w, root, 1, color)
}

func writeEntries(fsys afero.Fs, w io.Writer, dir string, depth int, color *ColorPrinter) error {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil
	}

	indent := strings.Repeat(" ", IndentSize*depth)
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		name := color.Sprintf(treeColor(entry), "%s", entry.Name())
		if err := Println(w, indent+name); err != nil {
			return err
		}

		if entry.IsDir() {
			if err := writeEntries(fsys, w, filepath.Join(dir, entry.Name()), depth+1, color); err != nil {
				return err
			}
		}
	}
	return nil
}

func treeColor(fi os.FileInfo) *fcolor.Color {
	switch {
	case fi.IsDir():
		return ColorBoldBlue
	case fi.Mode()&os.ModeSymlink != 0:
		return ColorBoldCyan
	default:
		return nil
	}
}
