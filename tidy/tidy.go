/*******************************************************************************
 * Copyright (c) 2026 Genome Research Ltd.
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

// package tidy moves the outputs of a multi run from its unique working
// directory to a final output directory.

package tidy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/otiai10/copy"
	"github.com/termie/go-shutil"
)

const modeRW = 0666

type Error string

func (e Error) Error() string { return string(e) }

const ErrNoReport = Error("no report found in working directory")

// Up describes a tidy of a multi working directory.
type Up struct {
	// SrcDir is the unique working directory multi created.
	SrcDir string

	// DestDir is where outputs are moved to. It is created with DestDirPerms
	// if it doesn't exist.
	DestDir      string
	DestDirPerms fs.FileMode

	// Report is the name of the report file within SrcDir.
	Report string

	// Contigs, if not blank, is the name of the directory of assembled contigs
	// within SrcDir that should also be kept.
	Contigs string

	// Date is included in the names of the moved outputs.
	Date string
}

// Up moves the report (and contigs if desired) in the source directory to the
// dest directory, naming them [date]_[source basename].[name], then deletes
// the source directory. Moved outputs get the same user:group ownership and
// user,group,other read & write permissions as the dest directory.
//
// It is safe to call this again if it was killed half way through; outputs
// already moved are not clobbered.
//
// It returns the paths of the moved outputs, which is empty if the source
// directory is gone and the report was already moved.
func (u *Up) Up() ([]string, error) {
	srcDir, destDir, err := u.absDirs()
	if err != nil {
		return nil, err
	}

	if _, err = os.Stat(srcDir); err != nil {
		if errors.Is(err, os.ErrNotExist) && exists(u.destPath(srcDir, destDir, u.Report)) {
			return nil, nil
		}

		return nil, err
	}

	destDirInfo, err := u.makeDestDir(destDir)
	if err != nil {
		return nil, err
	}

	report := u.destPath(srcDir, destDir, u.Report)
	if err = renameAndMatchPerms(filepath.Join(srcDir, u.Report), report, destDirInfo); err != nil {
		return nil, err
	}

	moved := []string{report}

	if u.Contigs != "" {
		contigs := u.destPath(srcDir, destDir, u.Contigs)
		if err = moveDirAndMatchPerms(filepath.Join(srcDir, u.Contigs), contigs, destDirInfo); err != nil {
			return nil, err
		}

		moved = append(moved, contigs)
	}

	return moved, os.RemoveAll(srcDir)
}

// absDirs returns the absolute paths to our source and dest directories.
func (u *Up) absDirs() (string, string, error) {
	srcDir, err := filepath.Abs(u.SrcDir)
	if err != nil {
		return "", "", err
	}

	destDir, err := filepath.Abs(u.DestDir)

	return srcDir, destDir, err
}

func exists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}

// makeDestDir creates the given dest dir if it doesn't exist, and returns its
// info.
func (u *Up) makeDestDir(destDir string) (fs.FileInfo, error) {
	err := os.MkdirAll(destDir, u.DestDirPerms)
	if err != nil {
		return nil, err
	}

	return os.Stat(destDir)
}

// destPath returns the path in destDir that the given output in srcDir will be
// moved to.
func (u *Up) destPath(srcDir, destDir, name string) string {
	return filepath.Join(destDir, fmt.Sprintf("%s_%s.%s", u.Date, filepath.Base(srcDir), name))
}

// renameAndMatchPerms tries 2 ways to rename the file (resorting to a copy if
// this is across filesystem boundaries), then matches the dest file permissions
// to the given FileInfo.
//
// If source doesn't exist, but dest does, assumes the rename was done
// previously and just tries to match the permissions.
func renameAndMatchPerms(source, dest string, destDirInfo fs.FileInfo) error {
	if _, err := os.Stat(source); errors.Is(err, os.ErrNotExist) {
		if _, err = os.Stat(dest); err == nil {
			return matchPerms(dest, destDirInfo)
		}

		return fmt.Errorf("%w: %s", ErrNoReport, source)
	}

	if err := os.Rename(source, dest); err != nil {
		if err = shutil.CopyFile(source, dest, false); err != nil {
			return err
		}
	}

	return matchPerms(dest, destDirInfo)
}

// moveDirAndMatchPerms renames the source directory to dest, resorting to a
// recursive copy if this is across filesystem boundaries, then matches the
// permissions of everything inside to the given FileInfo.
//
// If source doesn't exist, but dest does, assumes the move was done previously.
func moveDirAndMatchPerms(source, dest string, destDirInfo fs.FileInfo) error {
	_, err := os.Stat(source)
	if errors.Is(err, os.ErrNotExist) {
		if _, err = os.Stat(dest); err != nil {
			return err
		}
	} else if err = os.Rename(source, dest); err != nil {
		if err = copy.Copy(source, dest); err != nil {
			return err
		}
	}

	return matchPermsInsideDir(dest, destDirInfo)
}

// matchPerms ensures that the given file has the same ownership and read-write
// permissions as the given fileinfo.
func matchPerms(path string, desired fs.FileInfo) error {
	current, err := os.Stat(path)
	if err != nil {
		return err
	}

	if err = matchOwnership(path, current, desired); err != nil {
		return err
	}

	return matchReadWrite(path, current, desired)
}

// matchOwnership ensures that the given file with the current fileinfo has the
// same user and group ownership as the desired fileinfo.
func matchOwnership(path string, current, desired fs.FileInfo) error {
	uid, gid := getUIDAndGID(current)
	desiredUID, desiredGID := getUIDAndGID(desired)

	if uid == desiredUID && gid == desiredGID {
		return nil
	}

	return os.Lchown(path, desiredUID, desiredGID)
}

// getUIDAndGID extracts the UID and GID from a FileInfo. NB: this will only
// work on linux.
func getUIDAndGID(info fs.FileInfo) (int, int) {
	return int(info.Sys().(*syscall.Stat_t).Uid), int(info.Sys().(*syscall.Stat_t).Gid) //nolint:forcetypeassert
}

// matchReadWrite ensures that the given file with the current fileinfo has the
// same user,group,other read&write permissions as the desired fileinfo.
func matchReadWrite(path string, current, desired fs.FileInfo) error {
	currentMode := current.Mode()
	currentRW := currentMode & modeRW
	desiredRW := desired.Mode() & modeRW

	if currentRW == desiredRW {
		return nil
	}

	return os.Chmod(path, currentMode|desiredRW)
}

// matchPermsInsideDir does matchPerms for all the files in the given dir
// recursively.
func matchPermsInsideDir(dir string, desired fs.FileInfo) error {
	return filepath.WalkDir(dir, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		return matchPerms(path, desired)
	})
}
