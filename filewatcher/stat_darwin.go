//go:build darwin

package filewatcher

import (
	"os"
	"syscall"
	"time"
)

func statFromInfo(info os.FileInfo) FileStat {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return FileStat{Size: info.Size(), Mtime: info.ModTime()}
	}
	return FileStat{
		Device:   uint64(st.Dev),
		Inode:    st.Ino,
		Mode:     uint32(st.Mode),
		Nlink:    uint64(st.Nlink),
		Uid:      st.Uid,
		Gid:      st.Gid,
		DeviceID: uint64(st.Rdev),
		Size:     st.Size,
		Atime:    time.Unix(st.Atimespec.Sec, st.Atimespec.Nsec),
		Mtime:    time.Unix(st.Mtimespec.Sec, st.Mtimespec.Nsec),
		Ctime:    time.Unix(st.Ctimespec.Sec, st.Ctimespec.Nsec),
	}
}
