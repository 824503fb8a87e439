package logging

import (
	"os"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level letters, from most to least verbose.
// V and D both mean debug; F and N both suppress everything below DPanic.
var levelLetters = map[byte]zapcore.Level{
	'V': zapcore.DebugLevel,
	'D': zapcore.DebugLevel,
	'I': zapcore.InfoLevel,
	'W': zapcore.WarnLevel,
	'E': zapcore.ErrorLevel,
	'F': zapcore.DPanicLevel,
	'N': zapcore.DPanicLevel,
}

// ParseLevel parses a level letter or a zap level name such as "debug".
// It returns 'I' for unrecognized input.
func ParseLevel(input string) (letter byte, lvl zapcore.Level) {
	if len(input) == 1 {
		if lvl, ok := levelLetters[input[0]]; ok {
			return input[0], lvl
		}
	}
	if lvl, e := zapcore.ParseLevel(input); e == nil && len(input) > 1 {
		letter = strings.ToUpper(lvl.String())[0]
		if lvl > zapcore.ErrorLevel {
			letter = 'F'
			lvl = zapcore.DPanicLevel
		}
		return letter, lvl
	}
	return 'I', zapcore.InfoLevel
}

// PkgLevel is the log level of a package.
type PkgLevel struct {
	pkg    string
	letter byte
	al     zap.AtomicLevel
}

// Package returns package name.
func (pl PkgLevel) Package() string {
	return pl.pkg
}

// Level returns log level as a letter.
func (pl PkgLevel) Level() byte {
	return pl.letter
}

// SetLevel changes log level.
// Input is parsed by ParseLevel.
func (pl *PkgLevel) SetLevel(input string) {
	letter, lvl := ParseLevel(input)
	pl.al.SetLevel(lvl)
	pl.letter = letter
}

var (
	pkgLevelsLock sync.Mutex
	pkgLevels     = map[string]*PkgLevel{}
)

// ListLevels returns all package levels, sorted by package name.
func ListLevels() (list []PkgLevel) {
	pkgLevelsLock.Lock()
	defer pkgLevelsLock.Unlock()
	for _, pl := range pkgLevels {
		list = append(list, *pl)
	}
	slices.SortFunc(list, func(a, b PkgLevel) int { return strings.Compare(a.pkg, b.pkg) })
	return list
}

// FindLevel returns the level of an existing package, or nil.
func FindLevel(pkg string) *PkgLevel {
	pkgLevelsLock.Lock()
	defer pkgLevelsLock.Unlock()
	return pkgLevels[pkg]
}

// GetLevel finds or creates the level of a package.
// A new level is read from VERBSRX_LOG_<pkg> or VERBSRX_LOG environment variable.
func GetLevel(pkg string) *PkgLevel {
	pkgLevelsLock.Lock()
	defer pkgLevelsLock.Unlock()
	if pl := pkgLevels[pkg]; pl != nil {
		return pl
	}

	pl := &PkgLevel{pkg: pkg, al: zap.NewAtomicLevel()}
	input, ok := os.LookupEnv("VERBSRX_LOG_" + pkg)
	if !ok {
		input = os.Getenv("VERBSRX_LOG")
	}
	pl.SetLevel(input)
	pkgLevels[pkg] = pl
	return pl
}
