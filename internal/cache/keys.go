package cache

import "fmt"

// Gateway keys. Reads and the writes that invalidate them must agree on these.

func ChatKey(chatID string) string { return fmt.Sprintf("chat:%s", chatID) }

func ChatMessagesKey(chatID string) string { return fmt.Sprintf("chat:%s:messages", chatID) }

func UserChatsKey(userID string) string { return fmt.Sprintf("user:%s:chats", userID) }

func PreferencesKey(userID string) string { return fmt.Sprintf("user:%s:prefs", userID) }

func ProfileKey(profileID string) string { return fmt.Sprintf("profile:%s", profileID) }

const AnonymousProfilesKey = "profiles:anonymous"

func ReportCountsKey(userID string) string { return fmt.Sprintf("user:%s:report-counts", userID) }

func UserKeyKey(userID string) string { return fmt.Sprintf("user:%s:public-key", userID) }
