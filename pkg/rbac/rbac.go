package rbac

// 权限常量
const (
	PermissionCreateIdea      = "idea:create"
	PermissionUpdateIdea      = "idea:update"
	PermissionAcceptNDA       = "nda:accept"
	PermissionSubmitProposal  = "proposal:submit"
	PermissionManageProposals = "proposal:manage"
	PermissionWithdrawOwn     = "proposal:withdraw"
	PermissionEditContract    = "contract:edit"
	PermissionLogTask         = "task:log"
	PermissionReviewTask      = "task:review"
	PermissionBookmark        = "bookmark:toggle"
	PermissionReplayOutbox    = "outbox:replay"
)

// 角色常量
const (
	RoleEntrepreneur = "entrepreneur"
	RoleDeveloper    = "developer"
	RoleAdmin        = "admin"
)

// 角色权限映射
var rolePermissions = map[string][]string{
	RoleEntrepreneur: {
		PermissionCreateIdea,
		PermissionUpdateIdea,
		PermissionManageProposals,
		PermissionEditContract,
		PermissionReviewTask,
	},
	RoleDeveloper: {
		PermissionAcceptNDA,
		PermissionSubmitProposal,
		PermissionWithdrawOwn,
		PermissionEditContract,
		PermissionLogTask,
		PermissionBookmark,
	},
	RoleAdmin: {
		PermissionReplayOutbox,
	},
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role string, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission 检查角色是否有指定权限（返回错误而不是布尔值，便于处理）
func CheckPermission(userID int64, role string, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			UserID:     userID,
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	UserID     int64
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}

// ValidateUserIDInPayload 验证路径或 payload 中的 user id 与 token 中一致，admin 例外
func ValidateUserIDInPayload(tokenUserID int64, role string, payloadUserID int64) error {
	if role == RoleAdmin || payloadUserID == tokenUserID {
		return nil
	}
	return &UserIDMismatchError{
		TokenUserID:   tokenUserID,
		PayloadUserID: payloadUserID,
	}
}

// UserIDMismatchError 表示 user_id 不匹配的错误
type UserIDMismatchError struct {
	TokenUserID   int64
	PayloadUserID int64
}

func (e *UserIDMismatchError) Error() string {
	return "user id in request does not match token"
}
