package protocol

import "encoding/json"

// Files-channel command and event names. File operations are correlated
// request/response pairs scoped to a workspace path, not to a session.
const (
	CmdFilesTree      = "tree"
	CmdFilesRead      = "read"
	CmdFilesWrite     = "write"
	CmdFilesList      = "list"
	CmdFilesStat      = "stat"
	CmdFilesDelete    = "delete"
	CmdFilesMkdir     = "create_directory"
	CmdFilesRename    = "rename"
	CmdFilesCopy      = "copy"
	CmdFilesMove      = "move"

	EventFilesTreeResult   = "tree_result"
	EventFilesReadResult   = "read_result"
	EventFilesWriteResult  = "write_result"
	EventFilesListResult   = "list_result"
	EventFilesStatResult   = "stat_result"
	EventFilesDeleteResult = "delete_result"
	EventFilesMkdirResult  = "create_directory_result"
	EventFilesRenameResult = "rename_result"
	EventFilesCopyResult   = "copy_result"
	EventFilesMoveResult   = "move_result"
	EventFilesError        = "error"
)

func filesHeader(cmd string) CommandHeader {
	return CommandHeader{Channel: ChannelFiles, Cmd: cmd}
}

type FilesTree struct {
	CommandHeader
	Path          string `json:"path"`
	Depth         int    `json:"depth,omitempty"`
	IncludeHidden bool   `json:"include_hidden,omitempty"`
	WorkspacePath string `json:"workspace_path,omitempty"`
}

func NewFilesTree(path string) *FilesTree {
	return &FilesTree{CommandHeader: filesHeader(CmdFilesTree), Path: path}
}

type FilesRead struct {
	CommandHeader
	Path          string `json:"path"`
	WorkspacePath string `json:"workspace_path,omitempty"`
}

func NewFilesRead(path string) *FilesRead {
	return &FilesRead{CommandHeader: filesHeader(CmdFilesRead), Path: path}
}

type FilesWrite struct {
	CommandHeader
	Path          string `json:"path"`
	Content       string `json:"content"`
	CreateParents bool   `json:"create_parents,omitempty"`
	WorkspacePath string `json:"workspace_path,omitempty"`
}

func NewFilesWrite(path, content string) *FilesWrite {
	return &FilesWrite{CommandHeader: filesHeader(CmdFilesWrite), Path: path, Content: content}
}

type FilesList struct {
	CommandHeader
	Path          string `json:"path"`
	IncludeHidden bool   `json:"include_hidden,omitempty"`
	WorkspacePath string `json:"workspace_path,omitempty"`
}

func NewFilesList(path string) *FilesList {
	return &FilesList{CommandHeader: filesHeader(CmdFilesList), Path: path}
}

type FilesStat struct {
	CommandHeader
	Path          string `json:"path"`
	WorkspacePath string `json:"workspace_path,omitempty"`
}

func NewFilesStat(path string) *FilesStat {
	return &FilesStat{CommandHeader: filesHeader(CmdFilesStat), Path: path}
}

type FilesDelete struct {
	CommandHeader
	Path          string `json:"path"`
	Recursive     bool   `json:"recursive,omitempty"`
	WorkspacePath string `json:"workspace_path,omitempty"`
}

func NewFilesDelete(path string, recursive bool) *FilesDelete {
	return &FilesDelete{CommandHeader: filesHeader(CmdFilesDelete), Path: path, Recursive: recursive}
}

type FilesMkdir struct {
	CommandHeader
	Path          string `json:"path"`
	CreateParents bool   `json:"create_parents,omitempty"`
	WorkspacePath string `json:"workspace_path,omitempty"`
}

func NewFilesMkdir(path string) *FilesMkdir {
	return &FilesMkdir{CommandHeader: filesHeader(CmdFilesMkdir), Path: path, CreateParents: true}
}

// FilesTransfer covers rename, copy and move, which all take from/to paths.
type FilesTransfer struct {
	CommandHeader
	From          string `json:"from"`
	To            string `json:"to"`
	Overwrite     bool   `json:"overwrite,omitempty"`
	WorkspacePath string `json:"workspace_path,omitempty"`
}

func NewFilesTransfer(cmd, from, to string) *FilesTransfer {
	return &FilesTransfer{CommandHeader: filesHeader(cmd), From: from, To: to}
}

// FileTreeNode is one node of a recursive tree listing.
type FileTreeNode struct {
	Name     string         `json:"name"`
	Path     string         `json:"path"`
	Type     string         `json:"type"` // "file" | "directory"
	Size     uint64         `json:"size,omitempty"`
	Modified int64          `json:"modified,omitempty"`
	Children []FileTreeNode `json:"children,omitempty"`
}

// DirEntry is one row of a flat directory listing.
type DirEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Path  string `json:"path"`
}

type FilesTreeResult struct {
	EventHeader
	ID      string         `json:"id,omitempty"`
	Path    string         `json:"path"`
	Entries []FileTreeNode `json:"entries"`
}

type FilesReadResult struct {
	EventHeader
	ID        string `json:"id,omitempty"`
	Path      string `json:"path"`
	Content   string `json:"content"`
	Size      uint64 `json:"size,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

type FilesListResult struct {
	EventHeader
	ID      string     `json:"id,omitempty"`
	Path    string     `json:"path"`
	Entries []DirEntry `json:"entries"`
}

type FilesStatResult struct {
	EventHeader
	ID   string          `json:"id,omitempty"`
	Path string          `json:"path"`
	Stat json.RawMessage `json:"stat"`
}

// FilesOpResult acknowledges write/delete/mkdir operations.
type FilesOpResult struct {
	EventHeader
	ID      string `json:"id,omitempty"`
	Path    string `json:"path"`
	Success bool   `json:"success"`
}

// FilesTransferResult acknowledges rename/copy/move operations.
type FilesTransferResult struct {
	EventHeader
	ID      string `json:"id,omitempty"`
	From    string `json:"from"`
	To      string `json:"to"`
	Success bool   `json:"success"`
}
