package redis

import "fmt"

// Ключи, общие для сервисов и auth middleware.

const PlanListKey = "plans:all"

func TokenKey(userID int64) string { return fmt.Sprintf("user:%d:token", userID) }

func PlanKey(planID int64) string { return fmt.Sprintf("plan:%d", planID) }

func TraderKey(traderID int64) string { return fmt.Sprintf("trader:%d", traderID) }
