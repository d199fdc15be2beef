package service

import "sync"

// FileLocks — мьютексы по имени файла инвентаря. Обогащение, загрузка и
// удаление одного файла выполняются строго по очереди.
type FileLocks struct {
	mu    sync.Mutex
	locks map[string]*fileLock
}

type fileLock struct {
	mu   sync.Mutex
	refs int
}

// NewFileLocks создаёт пустой набор блокировок.
func NewFileLocks() *FileLocks {
	return &FileLocks{locks: make(map[string]*fileLock)}
}

// Lock захватывает блокировку файла name и возвращает функцию освобождения.
func (l *FileLocks) Lock(name string) (unlock func()) {
	l.mu.Lock()
	fl, ok := l.locks[name]
	if !ok {
		fl = &fileLock{}
		l.locks[name] = fl
	}
	fl.refs++
	l.mu.Unlock()

	fl.mu.Lock()
	return func() {
		fl.mu.Unlock()
		l.mu.Lock()
		fl.refs--
		if fl.refs == 0 {
			delete(l.locks, name)
		}
		l.mu.Unlock()
	}
}

func (l *FileLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
