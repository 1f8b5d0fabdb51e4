package iocli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Stdio реализация IO поверх потоков процесса
type Stdio struct {
	in  *bufio.Reader
	out io.Writer
	// fd дескриптор ввода; пароль читается без эха только с терминала
	fd int
	// isTerminal подменяется в тестах
	isTerminal func(fd int) bool
}

// NewStdio создает IO для os.Stdin и os.Stdout
func NewStdio() IO {
	return New(os.Stdin, os.Stdout, int(os.Stdin.Fd()))
}

// New создает IO поверх произвольных потоков
func New(in io.Reader, out io.Writer, fd int) *Stdio {
	return &Stdio{
		in:         bufio.NewReader(in),
		out:        out,
		fd:         fd,
		isTerminal: term.IsTerminal,
	}
}

func (s *Stdio) Println(a ...any) {
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

// ReadInput читает строку. Последняя строка без перевода строки тоже принимается.
func (s *Stdio) ReadInput(prompt string) (string, error) {
	s.Printf("%s", prompt)
	input, err := s.in.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// ReadPassword читает пароль без эха. Если ввод не терминал (pipe, скрипт), читает строку.
func (s *Stdio) ReadPassword(prompt string) (string, error) {
	if !s.isTerminal(s.fd) {
		return s.ReadInput(prompt)
	}

	s.Printf("%s", prompt)
	pwBytes, err := term.ReadPassword(s.fd)
	s.Println("")
	if err != nil {
		return "", err
	}
	return string(pwBytes), nil
}

func (s *Stdio) Confirm(prompt string) (bool, error) {
	answer, err := s.ReadInput(prompt + " (yes/no): ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
