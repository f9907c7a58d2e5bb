//go:build !windows

package gallery

import "golang.org/x/sys/unix"

// diskFree reports the bytes available to unprivileged writes on the
// filesystem containing path.
func diskFree(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}
