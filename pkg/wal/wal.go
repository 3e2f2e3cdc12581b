package wal

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// 自己定義常用的權限常量
const (
	// rw-r--r-- (擁有者讀寫，其他人唯讀)
	FileModeReadOnly fs.FileMode = 0644

	// rw------- (只有擁有者可讀寫) - 適用於含個資的帳本紀錄
	FileModePrivate fs.FileMode = 0600
)

// WAL 以 JSON Lines 格式追加寫入的 Write-Ahead Log
//
// 每次 Write 是一整行，寫入後立即 fsync。
// 讀取時若最後一行不完整 (寫到一半當機)，視為沒有寫入。
type WAL struct {
	file *os.File
	mu   sync.Mutex
}

// NewWAL 開啟或建立一個 WAL 檔案
// O_RDWR讀寫模式
// O_APPEND 每次寫入時自動跳到文件末尾
// O_CREATE 如果文件不存在則建立 (目錄一併建立)
func NewWAL(path string) (*WAL, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModePrivate)
	if err != nil {
		return nil, err
	}
	return &WAL{file: file}, nil
}

// Write 寫入一筆資料並刷入硬碟
//
// 先編碼到 buffer 再一次寫入，避免同一筆資料被拆成多次 write。
func (w *WAL) Write(v any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.file.Write(buf.Bytes()); err != nil {
		return err
	}
	return w.file.Sync()
}

// Sync 強制刷入硬碟
func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Sync()
}

// Close 關閉檔案
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// ReadAll 依寫入順序讀取所有資料
// callback 接收每一筆的原始 JSON，避免一次將所有資料載入記憶體
//
// 最後一行寫到一半時，把檔案截回最後一筆完整紀錄的結尾，
// 之後的 Write 才會從新的一行開始。
func (w *WAL) ReadAll(callback func(jsonRaw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// 確保從頭讀取 (O_APPEND 不影響讀取位置)
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(w.file)
	var end int64 // 最後一筆完整紀錄的結尾
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			// 最後一行寫到一半：該筆從未 commit
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return w.truncateTail(end)
			}
			return err
		}
		end = decoder.InputOffset()
		if err := callback(raw); err != nil {
			return err
		}
	}
}

// truncateTail 丟掉 end 之後不完整的資料並補上換行
func (w *WAL) truncateTail(end int64) error {
	if err := w.file.Truncate(end); err != nil {
		return err
	}
	if end > 0 {
		if _, err := w.file.Write([]byte{'\n'}); err != nil {
			return err
		}
	}
	return w.file.Sync()
}
