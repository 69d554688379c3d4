/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package shell

import (
	"strings"
)

// ParseLine splits one line into a command.
// Syntax:
//   - Words are separated by blanks; double quotes group words, \" and \\ escape inside quotes.
//   - '#' outside quotes starts a comment.
//   - Blank and comment-only lines yield ok=false and no error.
func ParseLine(line string, lineNo int) (Command, bool, *Error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		inQuote bool
		quoteAt int
	)
	flush := func() {
		if inWord {
			args = append(args, cur.String())
			cur.Reset()
			inWord = false
		}
	}
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case inQuote && c == '\\' && i+1 < len(runes) && (runes[i+1] == '"' || runes[i+1] == '\\'):
			cur.WriteRune(runes[i+1])
			i++
		case c == '"':
			if !inQuote {
				quoteAt = i + 1
			}
			inQuote = !inQuote
			inWord = true
		case inQuote:
			cur.WriteRune(c)
		case c == '#':
			i = len(runes)
		case c == ' ' || c == '\t' || c == '\r':
			flush()
		default:
			cur.WriteRune(c)
			inWord = true
		}
	}
	if inQuote {
		return Command{}, false, &Error{Line: lineNo, Column: quoteAt, Message: "unterminated quote"}
	}
	flush()
	if len(args) == 0 {
		return Command{}, false, nil
	}
	return Command{Name: strings.ToLower(args[0]), Args: args[1:], LineNo: lineNo}, true, nil
}
