package filewatcher

import "time"

// FileStat is the closed set of stat fields tracked for change
// detection (blksize and blocks are deliberately excluded).
type FileStat struct {
	Device   uint64
	Inode    uint64
	Mode     uint32
	Nlink    uint64
	Uid      uint32
	Gid      uint32
	DeviceID uint64 // rdev
	Size     int64
	Atime    time.Time
	Mtime    time.Time
	Ctime    time.Time
}

// fieldDelta is one changed field, as passed to an OnFieldChanged
// callback.
type fieldDelta struct {
	name     string
	old, new any
}

// diffFields returns one fieldDelta per field (of the closed set) whose
// value differs between old and new, in a fixed field order.
func diffFields(old, newStat *FileStat) []fieldDelta {
	var out []fieldDelta
	add := func(name string, eq bool, o, n any) {
		if !eq {
			out = append(out, fieldDelta{name: name, old: o, new: n})
		}
	}
	add("device", old.Device == newStat.Device, old.Device, newStat.Device)
	add("inode", old.Inode == newStat.Inode, old.Inode, newStat.Inode)
	add("mode", old.Mode == newStat.Mode, old.Mode, newStat.Mode)
	add("nlink", old.Nlink == newStat.Nlink, old.Nlink, newStat.Nlink)
	add("uid", old.Uid == newStat.Uid, old.Uid, newStat.Uid)
	add("gid", old.Gid == newStat.Gid, old.Gid, newStat.Gid)
	add("device_id", old.DeviceID == newStat.DeviceID, old.DeviceID, newStat.DeviceID)
	add("size", old.Size == newStat.Size, old.Size, newStat.Size)
	add("atime", old.Atime.Equal(newStat.Atime), old.Atime, newStat.Atime)
	add("mtime", old.Mtime.Equal(newStat.Mtime), old.Mtime, newStat.Mtime)
	add("ctime", old.Ctime.Equal(newStat.Ctime), old.Ctime, newStat.Ctime)
	return out
}

func devinoChanged(old, newStat *FileStat) bool {
	return old.Device != newStat.Device || old.Inode != newStat.Inode
}
