package bot

import (
	"fmt"
	"strconv"
	"strings"

	"storefront/internal/model"
)

// ParseIDArg extracts a product ID from a command argument string.
func ParseIDArg(args string) (int64, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, fmt.Errorf("product ID is required")
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(fields[0], "#"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid product ID %q", fields[0])
	}
	return id, nil
}

// ParseListArg splits a comma separated argument into its items. Blank
// items are dropped; an empty argument yields nil.
func ParseListArg(args string) []string {
	var out []string
	for _, item := range strings.Split(args, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ParseCartArgs parses "<id> [qty]". The quantity defaults to 1.
func ParseCartArgs(args string) (int64, int, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 || len(fields) > 2 {
		return 0, 0, fmt.Errorf("usage: /add <id> [qty]")
	}
	id, err := ParseIDArg(fields[0])
	if err != nil {
		return 0, 0, err
	}
	qty := 1
	if len(fields) == 2 {
		qty, err = strconv.Atoi(fields[1])
		if err != nil || qty < 1 || qty > model.MaxCartQuantity {
			return 0, 0, fmt.Errorf("quantity must be between 1 and %d", model.MaxCartQuantity)
		}
	}
	return id, qty, nil
}

// ParsePageArg parses an optional 1-based page number.
func ParsePageArg(args string) (int, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid page %q", s)
	}
	return n, nil
}

// Callback actions carried in inline button data as "<action>:<n>".
const (
	actionPage = "page"
	actionSort = "sort"
	actionFav  = "fav"
	actionCart = "cart"
	actionNoop = "noop"

	sortUnset = -1
)

func callbackData(action string, n int64) string {
	return action + ":" + strconv.FormatInt(n, 10)
}

// ParseCallbackData splits inline button data into its action and number.
func ParseCallbackData(data string) (string, int64, error) {
	action, raw, ok := strings.Cut(data, ":")
	if !ok || action == "" {
		return "", 0, fmt.Errorf("malformed callback data %q", data)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed callback data %q", data)
	}
	return action, n, nil
}
