//go:build linux

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
		Device:   st.Dev,
		Inode:    st.Ino,
		Mode:     st.Mode,
		Nlink:    uint64(st.Nlink),
		Uid:      st.Uid,
		Gid:      st.Gid,
		DeviceID: st.Rdev,
		Size:     st.Size,
		Atime:    time.Unix(st.Atim.Sec, st.Atim.Nsec),
		Mtime:    time.Unix(st.Mtim.Sec, st.Mtim.Nsec),
		Ctime:    time.Unix(st.Ctim.Sec, st.Ctim.Nsec),
	}
}
