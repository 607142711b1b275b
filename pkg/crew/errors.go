package crew

import "fmt"

// DuplicateNameError 成员名称冲突
type DuplicateNameError struct {
	Name string
}

// Error 实现 error 接口
func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("crew member %q already registered", e.Name)
}

// UnknownCrewMemberError 按名称或职位都无法解析
type UnknownCrewMemberError struct {
	Identifier string
}

// Error 实现 error 接口
func (e *UnknownCrewMemberError) Error() string {
	return fmt.Sprintf("unknown crew member or title: %q", e.Identifier)
}

// InvalidTitleError 职位属于保留类别（system/user 等）
type InvalidTitleError struct {
	Title string
}

// Error 实现 error 接口
func (e *InvalidTitleError) Error() string {
	return fmt.Sprintf("invalid crew title %q: reserved category", e.Title)
}

// InvalidMemberError 成员定义不合法
type InvalidMemberError struct {
	Reason string
}

// Error 实现 error 接口
func (e *InvalidMemberError) Error() string {
	return fmt.Sprintf("invalid crew member: %s", e.Reason)
}

// NotFoundError 按名称查找成员失败
type NotFoundError struct {
	Name string
}

// Error 实现 error 接口
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("crew member not found: %s", e.Name)
}
